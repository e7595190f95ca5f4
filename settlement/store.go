// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package settlement

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Fintechain/gfs-core/store"
)

var (
	settlementKey   = "settlement:%s"
	messageIndexKey = "settlements:message:%s"
	openIndexKey    = "settlements:open"
)

var ErrSettlementNotFound = errors.New("settlement not found")

// Store persists settlement records and two indices: settlements per message
// and the set of non-terminal settlements the sweep job re-checks.
type Store struct {
	db store.KeyValueReaderWriter
}

func NewStore(db store.KeyValueReaderWriter) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) Create(settlement *Settlement) error {
	if err := s.save(settlement); err != nil {
		return err
	}
	if err := s.appendIndex(fmt.Sprintf(messageIndexKey, settlement.MessageID.Hex()), settlement.ID); err != nil {
		return err
	}
	return s.appendIndex(openIndexKey, settlement.ID)
}

func (s *Store) Get(id common.Hash) (*Settlement, error) {
	v, err := s.db.GetByKey([]byte(fmt.Sprintf(settlementKey, id.Hex())))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, err
	}

	settlement := &Settlement{}
	if err := json.Unmarshal(v, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *Store) Exists(id common.Hash) (bool, error) {
	_, err := s.Get(id)
	if err != nil {
		if errors.Is(err, ErrSettlementNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdateStatus writes the new status and drops the settlement from the open
// index once it turns terminal.
func (s *Store) UpdateStatus(id common.Hash, status Status) error {
	settlement, err := s.Get(id)
	if err != nil {
		return err
	}

	settlement.Status = status
	if err := s.save(settlement); err != nil {
		return err
	}

	if status.IsTerminal() {
		return s.removeFromIndex(openIndexKey, id)
	}
	return nil
}

// ByMessage returns ids of all settlement attempts spawned by messageID.
func (s *Store) ByMessage(messageID common.Hash) ([]common.Hash, error) {
	return s.readIndex(fmt.Sprintf(messageIndexKey, messageID.Hex()))
}

// Open returns ids of all settlements not yet in a terminal status.
func (s *Store) Open() ([]common.Hash, error) {
	return s.readIndex(openIndexKey)
}

func (s *Store) save(settlement *Settlement) error {
	v, err := json.Marshal(settlement)
	if err != nil {
		return err
	}
	return s.db.SetByKey([]byte(fmt.Sprintf(settlementKey, settlement.ID.Hex())), v)
}

func (s *Store) appendIndex(key string, id common.Hash) error {
	ids, err := s.readIndex(key)
	if err != nil {
		return err
	}
	ids = append(ids, id)
	return s.writeIndex(key, ids)
}

func (s *Store) removeFromIndex(key string, id common.Hash) error {
	ids, err := s.readIndex(key)
	if err != nil {
		return err
	}

	remaining := make([]common.Hash, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			remaining = append(remaining, existing)
		}
	}
	return s.writeIndex(key, remaining)
}

func (s *Store) readIndex(key string) ([]common.Hash, error) {
	v, err := s.db.GetByKey([]byte(key))
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

func (s *Store) writeIndex(key string, ids []common.Hash) error {
	v, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.db.SetByKey([]byte(key), v)
}
