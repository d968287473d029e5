// Package clock provides the L0 time and id-generation seams used
// throughout the runtime so components never call time.Now or uuid.New
// directly.
package clock

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock time.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// IDGen generates identifiers.
type IDGen interface {
	NewID() string
}

// UUIDGen generates random UUIDv4 strings via google/uuid.
type UUIDGen struct{}

// NewID returns a freshly generated UUID string.
func (UUIDGen) NewID() string { return uuid.NewString() }

// Fixed is a deterministic Clock for tests: it never advances unless Advance
// is called.
type Fixed struct {
	t time.Time
}

// NewFixed returns a Fixed clock starting at t.
func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

// Now returns the current fixed instant.
func (f *Fixed) Now() time.Time { return f.t }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.t = f.t.Add(d) }

// SeededIDGen generates deterministic, sequential ids for reproducible
// tests (spec §8: "InstantiatePool with a fixed UUID seed yields identical
// ExecutionPlan phase structure").
type SeededIDGen struct {
	prefix string
	next   uint64
}

// NewSeededIDGen returns a SeededIDGen that produces a deterministic,
// reproducible sequence of UUIDs derived from "<prefix>-<n>" seeds.
func NewSeededIDGen(prefix string) *SeededIDGen {
	return &SeededIDGen{prefix: prefix}
}

// NewID returns the next deterministic id in sequence.
func (s *SeededIDGen) NewID() string {
	s.next++
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.idSeed())).String()
}

func (s *SeededIDGen) idSeed() string {
	return s.prefix + "-" + strconv.FormatUint(s.next, 10)
}
