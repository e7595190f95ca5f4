// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import (
	"bytes"
	"sync"
)

// Format describes the expected shape of a payload for one message type.
// RequiredFields are byte selectors that must appear in the raw payload,
// Schema is an opaque blob handed through to off-process tooling.
type Format struct {
	MinLength      int
	RequiredFields [][]byte
	Schema         []byte
}

// Protocol validates payload shape against registered per-type formats. It is
// independent of routing and settlement and performs no state mutation on the
// validation path, so the coordinator can reject malformed submissions before
// any fee is charged.
type Protocol struct {
	mu      sync.RWMutex
	formats map[MessageType]Format
}

func NewProtocol() *Protocol {
	return &Protocol{
		formats: make(map[MessageType]Format),
	}
}

// RegisterFormat is an idempotent upsert keyed by message type.
func (p *Protocol) RegisterFormat(msgType MessageType, format Format) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.formats[msgType] = format
}

// ValidateMessage reports whether payload satisfies the registered format for
// msgType. Validation failure is a boolean, not an error.
func (p *Protocol) ValidateMessage(msgType MessageType, payload []byte) bool {
	p.mu.RLock()
	format, ok := p.formats[msgType]
	p.mu.RUnlock()
	if !ok {
		return false
	}

	if len(payload) < format.MinLength {
		return false
	}
	for _, field := range format.RequiredFields {
		if !bytes.Contains(payload, field) {
			return false
		}
	}
	return true
}
