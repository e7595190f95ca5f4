// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package coordinator

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Fintechain/gfs-core/auth"
	"github.com/Fintechain/gfs-core/events"
)

var (
	ErrUnknownComponent = errors.New("unknown component name")
	ErrInvalidComponent = errors.New("component does not implement required interface")
)

// Component names accepted by UpdateComponent.
const (
	ComponentRegistry   = "registry"
	ComponentTargets    = "targets"
	ComponentProtocol   = "protocol"
	ComponentRouter     = "router"
	ComponentProcessor  = "processor"
	ComponentSettlement = "settlement"
)

// UpdateComponent hot-swaps one of the coordinator's dependencies. This is
// the engine's upgrade mechanism; the replacement must satisfy the
// component's interface.
func (c *Coordinator) UpdateComponent(by common.Address, name string, component interface{}) error {
	if err := c.auth.Authorize(auth.OpUpdateComponent, by); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case ComponentRegistry:
		registry, ok := component.(Registry)
		if !ok {
			return ErrInvalidComponent
		}
		c.registry = registry
	case ComponentTargets:
		targets, ok := component.(TargetValidator)
		if !ok {
			return ErrInvalidComponent
		}
		c.targets = targets
	case ComponentProtocol:
		protocol, ok := component.(Validator)
		if !ok {
			return ErrInvalidComponent
		}
		c.protocol = protocol
	case ComponentRouter:
		messageRouter, ok := component.(MessageRouter)
		if !ok {
			return ErrInvalidComponent
		}
		messageRouter.SetDispatcher(c)
		c.router = messageRouter
	case ComponentProcessor:
		proc, ok := component.(MessageProcessor)
		if !ok {
			return ErrInvalidComponent
		}
		c.proc = proc
	case ComponentSettlement:
		settler, ok := component.(Settler)
		if !ok {
			return ErrInvalidComponent
		}
		c.settler = settler
	default:
		return ErrUnknownComponent
	}

	c.emitter.Emit(events.Event{
		Type:  events.ComponentUpdated,
		Actor: by,
		Attributes: map[string]string{
			"component": name,
		},
	})
	return nil
}

// UpdateBaseFee replaces the protocol base fee for future submissions.
func (c *Coordinator) UpdateBaseFee(by common.Address, fee *big.Int) error {
	if err := c.auth.Authorize(auth.OpUpdateFees, by); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseFee = new(big.Int).Set(fee)

	c.emitter.Emit(events.Event{
		Type:  events.FeeUpdated,
		Actor: by,
		Attributes: map[string]string{
			"baseFee": fee.String(),
		},
	})
	return nil
}

// RegisterRelaySender registers the only address accepted as inbound relay
// source for chainID.
func (c *Coordinator) RegisterRelaySender(by common.Address, chainID uint64, sender common.Address) error {
	if err := c.auth.Authorize(auth.OpManageRelay, by); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.relaySenders[chainID] = sender
	return nil
}

// Pause gates all state-mutating entry points.
func (c *Coordinator) Pause(by common.Address) error {
	if err := c.auth.Authorize(auth.OpPause, by); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true

	c.emitter.Emit(events.Event{
		Type:  events.EnginePaused,
		Actor: by,
	})
	return nil
}

func (c *Coordinator) Unpause(by common.Address) error {
	if err := c.auth.Authorize(auth.OpPause, by); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false

	c.emitter.Emit(events.Event{
		Type:  events.EngineUnpaused,
		Actor: by,
	})
	return nil
}
