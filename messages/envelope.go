// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Envelope is the wire format handed to the relay for cross-chain delivery
// and decoded again on the receiving side.
type Envelope struct {
	MessageID      common.Hash
	OriginalSender common.Address
	Target         common.Address
	Payload        []byte
}

// PackEnvelope encodes (messageID, originalSender, target, payload) with
// fixed-width framing: 32-byte id, two left-padded 32-byte addresses, a
// 32-byte payload length and the raw payload.
func PackEnvelope(messageID common.Hash, originalSender, target common.Address, payload []byte) []byte {
	data := bytes.Buffer{}
	data.Write(messageID.Bytes())
	data.Write(common.LeftPadBytes(originalSender.Bytes(), 32))
	data.Write(common.LeftPadBytes(target.Bytes(), 32))
	data.Write(common.LeftPadBytes(big.NewInt(int64(len(payload))).Bytes(), 32))
	data.Write(payload)
	return data.Bytes()
}

// UnpackEnvelope decodes an envelope produced by PackEnvelope.
func UnpackEnvelope(data []byte) (*Envelope, error) {
	if len(data) < 128 {
		return nil, errors.New("envelope too short")
	}
	// the length field is relay-supplied and untrusted, bound it before it
	// is narrowed to a native int
	length := new(big.Int).SetBytes(data[96:128])
	if !length.IsInt64() || length.Cmp(big.NewInt(int64(len(data)-128))) > 0 {
		return nil, errors.New("envelope payload truncated")
	}
	payloadLen := length.Int64()
	return &Envelope{
		MessageID:      common.BytesToHash(data[:32]),
		OriginalSender: common.BytesToAddress(data[32:64]),
		Target:         common.BytesToAddress(data[64:96]),
		Payload:        data[128 : 128+payloadLen],
	}, nil
}
