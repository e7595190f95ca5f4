// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package auth

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOperator  Role = "operator"
	RoleEmergency Role = "emergency"
)

type Operation string

const (
	OpUpdateComponent Operation = "updateComponent"
	OpUpdateFees      Operation = "updateFees"
	OpPause           Operation = "pause"
	OpEmergencyCancel Operation = "emergencyCancel"
	OpManagePool      Operation = "managePool"
	OpRegisterHandler Operation = "registerHandler"
	OpRegisterTarget  Operation = "registerTarget"
	OpManageRelay     Operation = "manageRelay"
	OpGrantRole       Operation = "grantRole"
)

var (
	ErrUnauthorized = errors.New("caller not authorized for operation")
	ErrUnknownRole  = errors.New("unknown role")
)

// capabilities maps each operation to the roles allowed to perform it. One
// shared table replaces per-component role constants.
var capabilities = map[Operation][]Role{
	OpUpdateComponent: {RoleAdmin},
	OpUpdateFees:      {RoleAdmin, RoleOperator},
	OpPause:           {RoleAdmin, RoleEmergency},
	OpEmergencyCancel: {RoleEmergency},
	OpManagePool:      {RoleAdmin, RoleOperator},
	OpRegisterHandler: {RoleAdmin},
	OpRegisterTarget:  {RoleAdmin, RoleOperator},
	OpManageRelay:     {RoleAdmin, RoleOperator},
	OpGrantRole:       {RoleAdmin},
}

// Table is the shared authorization component. Every admin-gated surface in
// the engine resolves through it.
type Table struct {
	mu     sync.RWMutex
	grants map[Role]map[common.Address]bool
}

// NewTable seeds admin with every role so the deployer can bootstrap further
// grants.
func NewTable(admin common.Address) *Table {
	grants := map[Role]map[common.Address]bool{
		RoleAdmin:     {admin: true},
		RoleOperator:  {admin: true},
		RoleEmergency: {admin: true},
	}
	return &Table{
		grants: grants,
	}
}

// Authorize reports whether addr holds any role allowed to perform op.
func (t *Table) Authorize(op Operation, addr common.Address) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, role := range capabilities[op] {
		if t.grants[role][addr] {
			return nil
		}
	}
	return ErrUnauthorized
}

func (t *Table) HasRole(role Role, addr common.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.grants[role][addr]
}

func (t *Table) Grant(by common.Address, role Role, addr common.Address) error {
	if err := t.Authorize(OpGrantRole, by); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	holders, ok := t.grants[role]
	if !ok {
		return ErrUnknownRole
	}
	holders[addr] = true
	return nil
}

func (t *Table) Revoke(by common.Address, role Role, addr common.Address) error {
	if err := t.Authorize(OpGrantRole, by); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	holders, ok := t.grants[role]
	if !ok {
		return ErrUnknownRole
	}
	delete(holders, addr)
	return nil
}
