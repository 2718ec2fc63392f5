// Package rng implements the deterministic random sequence that drives every
// match. All randomness is a pure function of the match seed and a monotonic
// draw counter, so replaying a match's action log against the same seed
// reproduces identical dice.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Draw returns a value in [0,1) derived from (seed, counter). The same pair
// always yields the same value.
func Draw(seed string, counter uint64) float64 {
	sum := blake2b.Sum256([]byte(seed + ":" + strconv.FormatUint(counter, 10)))
	u := binary.BigEndian.Uint64(sum[:8])
	// Top 53 bits so the result is exactly representable as a float64.
	return float64(u>>11) / (1 << 53)
}

// Sequence is a match's draw cursor. Next is the only way the counter moves,
// and it only ever moves forward.
type Sequence struct {
	seed    string
	counter uint64
}

// NewSequence creates a sequence positioned at the given counter. A fresh
// match starts at 0; a re-hydrated match resumes at its persisted counter.
func NewSequence(seed string, counter uint64) *Sequence {
	return &Sequence{seed: seed, counter: counter}
}

// Next draws at the current counter and advances it by exactly 1.
func (s *Sequence) Next() float64 {
	v := Draw(s.seed, s.counter)
	s.counter++
	return v
}

// Counter returns the number of draws consumed so far.
func (s *Sequence) Counter() uint64 {
	return s.counter
}

// Seed returns the seed the sequence was created with.
func (s *Sequence) Seed() string {
	return s.seed
}

// RollDice consumes exactly two draws and maps each to [1,6]. The first draw
// is die 1; order is significant for reproducibility.
func RollDice(s *Sequence) (int, int) {
	d1 := int(s.Next()*6) + 1
	d2 := int(s.Next()*6) + 1
	return d1, d2
}

// NewSeed generates a random match seed using crypto/rand.
func NewSeed() (string, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random seed: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
