// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Fintechain/gfs-core/messages"
)

var (
	messageKey     = "message:%s"
	senderIndexKey = "messages:sender:%s"
	targetIndexKey = "messages:target:%s"
)

var (
	ErrDuplicateMessage  = errors.New("message with this id already registered")
	ErrInvalidTarget     = errors.New("target is the zero address")
	ErrEmptyPayload      = errors.New("payload is empty")
	ErrMessageNotFound   = errors.New("message not found")
	ErrInvalidTransition = errors.New("illegal message status transition")
)

// MessageStore is the durable, append-mostly registry of every submitted
// message and its lifecycle status. It is the single source of truth for what
// happened to a message. Records are never deleted; sender and target indices
// are append-only.
type MessageStore struct {
	db KeyValueReaderWriter
}

func NewMessageStore(db KeyValueReaderWriter) *MessageStore {
	return &MessageStore{
		db: db,
	}
}

// Register persists a new message under its derived id. The id is registered
// at most once.
func (ms *MessageStore) Register(msg *messages.Message) error {
	if msg.Target == (common.Address{}) {
		return ErrInvalidTarget
	}
	if len(msg.Payload) == 0 {
		return ErrEmptyPayload
	}

	exists, err := ms.Exists(msg.ID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateMessage
	}

	if err := ms.save(msg); err != nil {
		return err
	}
	if err := ms.appendIndex(fmt.Sprintf(senderIndexKey, msg.Sender.Hex()), msg.ID); err != nil {
		return err
	}
	return ms.appendIndex(fmt.Sprintf(targetIndexKey, msg.Target.Hex()), msg.ID)
}

// UpdateStatus advances a message through its lifecycle. Transitions are
// validated against the status graph so a late caller cannot move a message
// backwards or resurrect a terminal one.
func (ms *MessageStore) UpdateStatus(id common.Hash, status messages.MessageStatus) error {
	msg, err := ms.Get(id)
	if err != nil {
		return err
	}

	if !msg.Status.CanTransitionTo(status) {
		return ErrInvalidTransition
	}

	msg.Status = status
	return ms.save(msg)
}

func (ms *MessageStore) Get(id common.Hash) (*messages.Message, error) {
	v, err := ms.db.GetByKey([]byte(fmt.Sprintf(messageKey, id.Hex())))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	msg := &messages.Message{}
	if err := json.Unmarshal(v, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (ms *MessageStore) Exists(id common.Hash) (bool, error) {
	_, err := ms.db.GetByKey([]byte(fmt.Sprintf(messageKey, id.Hex())))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (ms *MessageStore) Status(id common.Hash) (messages.MessageStatus, error) {
	msg, err := ms.Get(id)
	if err != nil {
		return "", err
	}
	return msg.Status, nil
}

// BySender returns ids of all messages submitted by sender, oldest first.
func (ms *MessageStore) BySender(sender common.Address) ([]common.Hash, error) {
	return ms.readIndex(fmt.Sprintf(senderIndexKey, sender.Hex()))
}

// ByTarget returns ids of all messages addressed to target, oldest first.
func (ms *MessageStore) ByTarget(target common.Address) ([]common.Hash, error) {
	return ms.readIndex(fmt.Sprintf(targetIndexKey, target.Hex()))
}

func (ms *MessageStore) save(msg *messages.Message) error {
	v, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ms.db.SetByKey([]byte(fmt.Sprintf(messageKey, msg.ID.Hex())), v)
}

func (ms *MessageStore) appendIndex(key string, id common.Hash) error {
	ids, err := ms.readIndex(key)
	if err != nil {
		return err
	}
	ids = append(ids, id)

	v, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return ms.db.SetByKey([]byte(key), v)
}

func (ms *MessageStore) readIndex(key string) ([]common.Hash, error) {
	v, err := ms.db.GetByKey([]byte(key))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return []common.Hash{}, nil
		}
		return nil, err
	}

	ids := []common.Hash{}
	if err := json.Unmarshal(v, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
