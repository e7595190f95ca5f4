// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
	"golang.org/x/exp/slices"

	"github.com/Fintechain/gfs-core/messages"
)

var (
	targetKey       = "target:%d:%s"
	chainTargetsKey = "targets:chain:%d"
)

// ErrTargetNotFound is returned for (address, chain) pairs that were never
// registered.
var ErrTargetNotFound = errors.New("target not found")

// TargetStore tracks registered participants per chain. Re-registering an
// address overwrites the previous record without checking existing state;
// that discipline belongs to the caller. Targets are never hard-deleted,
// deactivation is the only removal path.
type TargetStore struct {
	db KeyValueReaderWriter
}

func NewTargetStore(db KeyValueReaderWriter) *TargetStore {
	return &TargetStore{
		db: db,
	}
}

func (ts *TargetStore) Register(target *messages.Target) error {
	target.RegisteredAt = time.Now()

	exists, err := ts.exists(target.Address, target.ChainID)
	if err != nil {
		return err
	}

	if err := ts.save(target); err != nil {
		return err
	}
	if exists {
		return nil
	}
	return ts.appendIndex(fmt.Sprintf(chainTargetsKey, target.ChainID), target.Address)
}

func (ts *TargetStore) Get(addr common.Address, chainID uint64) (*messages.Target, error) {
	v, err := ts.db.GetByKey([]byte(fmt.Sprintf(targetKey, chainID, addr.Hex())))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}

	target := &messages.Target{}
	if err := json.Unmarshal(v, target); err != nil {
		return nil, err
	}
	return target, nil
}

// IsValidTarget reports whether (addr, chainID) is registered on exactly that
// chain and currently active. A target registered on another chain is never
// valid here.
func (ts *TargetStore) IsValidTarget(addr common.Address, chainID uint64) (bool, error) {
	target, err := ts.Get(addr, chainID)
	if err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			return false, nil
		}
		return false, err
	}
	return target.Active, nil
}

// SetActive flips the active flag. This is the only deactivation path,
// preserving the audit index.
func (ts *TargetStore) SetActive(addr common.Address, chainID uint64, active bool) error {
	target, err := ts.Get(addr, chainID)
	if err != nil {
		return err
	}

	target.Active = active
	return ts.save(target)
}

// ByChain returns every target ever registered on chainID.
func (ts *TargetStore) ByChain(chainID uint64) ([]*messages.Target, error) {
	addrs, err := ts.readIndex(fmt.Sprintf(chainTargetsKey, chainID))
	if err != nil {
		return nil, err
	}

	targets := make([]*messages.Target, 0, len(addrs))
	for _, addr := range addrs {
		target, err := ts.Get(addr, chainID)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// ByType returns targets on chainID matching targetType. Targets registered
// as TargetBoth match every type.
func (ts *TargetStore) ByType(chainID uint64, targetType messages.TargetType) ([]*messages.Target, error) {
	targets, err := ts.ByChain(chainID)
	if err != nil {
		return nil, err
	}

	matched := make([]*messages.Target, 0, len(targets))
	for _, target := range targets {
		if target.Type == targetType || target.Type == messages.TargetBoth {
			matched = append(matched, target)
		}
	}
	return matched, nil
}

func (ts *TargetStore) exists(addr common.Address, chainID uint64) (bool, error) {
	_, err := ts.Get(addr, chainID)
	if err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (ts *TargetStore) save(target *messages.Target) error {
	v, err := json.Marshal(target)
	if err != nil {
		return err
	}
	return ts.db.SetByKey([]byte(fmt.Sprintf(targetKey, target.ChainID, target.Address.Hex())), v)
}

func (ts *TargetStore) appendIndex(key string, addr common.Address) error {
	addrs, err := ts.readIndex(key)
	if err != nil {
		return err
	}
	if slices.Contains(addrs, addr) {
		return nil
	}
	addrs = append(addrs, addr)

	v, err := json.Marshal(addrs)
	if err != nil {
		return err
	}
	return ts.db.SetByKey([]byte(key), v)
}

func (ts *TargetStore) readIndex(key string) ([]common.Address, error) {
	v, err := ts.db.GetByKey([]byte(key))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return []common.Address{}, nil
		}
		return nil, err
	}

	addrs := []common.Address{}
	if err := json.Unmarshal(v, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}
