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
)

var deliveryKey = "delivery:%s"

var ErrDeliveryNotFound = errors.New("delivery not found")

// Delivery records one cross-chain routing attempt. A delivery hash maps to
// at most one in-flight delivery.
type Delivery struct {
	Hash      common.Hash `json:"hash"`
	MessageID common.Hash `json:"messageId"`
	Success   bool        `json:"success"`
	Completed bool        `json:"completed"`
	Timestamp time.Time   `json:"timestamp"`
}

type DeliveryStore struct {
	db KeyValueReaderWriter
}

func NewDeliveryStore(db KeyValueReaderWriter) *DeliveryStore {
	return &DeliveryStore{
		db: db,
	}
}

func (ds *DeliveryStore) Store(delivery *Delivery) error {
	v, err := json.Marshal(delivery)
	if err != nil {
		return err
	}
	return ds.db.SetByKey([]byte(fmt.Sprintf(deliveryKey, delivery.Hash.Hex())), v)
}

func (ds *DeliveryStore) Get(hash common.Hash) (*Delivery, error) {
	v, err := ds.db.GetByKey([]byte(fmt.Sprintf(deliveryKey, hash.Hex())))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}

	delivery := &Delivery{}
	if err := json.Unmarshal(v, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}
