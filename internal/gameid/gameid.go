// Package gameid generates sortable identifiers for blackjack rounds.
package gameid

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"
)

// Prefix is prepended to every round ID
const Prefix = "rnd_"

// Crockford's base32, lower case
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// RandSource is satisfied by *rand.Rand from math/rand/v2
type RandSource interface {
	IntN(n int) int
}

// Generator creates round IDs. The zero value uses crypto/rand and the wall clock.
type Generator struct {
	rand RandSource
	now  func() time.Time
}

// NewGenerator creates a generator drawing entropy from src. A nil src uses crypto/rand.
func NewGenerator(src RandSource, now func() time.Time) *Generator {
	return &Generator{rand: src, now: now}
}

// New returns a round ID using crypto/rand
func New() string {
	var g Generator
	return g.Next()
}

// Next returns the next round ID: the prefix followed by a UUIDv7 in base32
func (g *Generator) Next() string {
	id := g.uuidV7()
	return Prefix + encoding.EncodeToString(id[:])
}

func (g *Generator) uuidV7() [16]byte {
	var id [16]byte

	now := time.Now
	if g.now != nil {
		now = g.now
	}
	ms := now().UnixMilli()
	for i := range 6 {
		id[i] = byte(ms >> (40 - 8*i))
	}

	if g.rand != nil {
		for i := 6; i < 16; i++ {
			id[i] = byte(g.rand.IntN(256))
		}
	} else if _, err := rand.Read(id[6:]); err != nil {
		panic("gameid: crypto/rand failed: " + err.Error())
	}

	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant
	return id
}

// Validate checks that id is a well-formed round ID
func Validate(id string) error {
	body, ok := strings.CutPrefix(id, Prefix)
	if !ok {
		return fmt.Errorf("round ID must start with %q", Prefix)
	}
	if len(body) != 26 {
		return fmt.Errorf("round ID body must be 26 characters, got %d", len(body))
	}
	if _, err := encoding.DecodeString(body); err != nil {
		return fmt.Errorf("round ID is not base32: %w", err)
	}
	return nil
}
