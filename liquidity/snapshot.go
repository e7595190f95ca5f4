// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package liquidity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Fintechain/gfs-core/store"
)

var (
	poolAssetKey = "pool:asset:%s"
	poolIndexKey = "pool:assets"
)

// Snapshotter persists per-asset pool state so accounting survives restarts.
// Every mutation writes a full snapshot of the touched asset.
type Snapshotter struct {
	db store.KeyValueReaderWriter
}

func NewSnapshotter(db store.KeyValueReaderWriter) *Snapshotter {
	return &Snapshotter{
		db: db,
	}
}

func (s *Snapshotter) Save(token common.Address, state *assetState) error {
	tokens, err := s.index()
	if err != nil {
		return err
	}
	known := false
	for _, t := range tokens {
		if t == token {
			known = true
			break
		}
	}
	if !known {
		tokens = append(tokens, token)
		v, err := json.Marshal(tokens)
		if err != nil {
			return err
		}
		if err := s.db.SetByKey([]byte(poolIndexKey), v); err != nil {
			return err
		}
	}

	v, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.SetByKey([]byte(fmt.Sprintf(poolAssetKey, token.Hex())), v)
}

func (s *Snapshotter) Load() (map[common.Address]*assetState, error) {
	tokens, err := s.index()
	if err != nil {
		return nil, err
	}

	assets := make(map[common.Address]*assetState)
	for _, token := range tokens {
		v, err := s.db.GetByKey([]byte(fmt.Sprintf(poolAssetKey, token.Hex())))
		if err != nil {
			return nil, err
		}
		state := &assetState{}
		if err := json.Unmarshal(v, state); err != nil {
			return nil, err
		}
		assets[token] = state
	}
	return assets, nil
}

func (s *Snapshotter) index() ([]common.Address, error) {
	v, err := s.db.GetByKey([]byte(poolIndexKey))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return []common.Address{}, nil
		}
		return nil, err
	}

	tokens := []common.Address{}
	if err := json.Unmarshal(v, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}
