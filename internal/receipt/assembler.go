package receipt

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	receiptNumberPrefix = "ORB"

	// isoMillis matches the ISO 8601 form browsers produce: UTC, millisecond precision
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// RandomSource provides the random suffix of receipt numbers
type RandomSource interface {
	// IntN returns a value in [0, n)
	IntN(n int) int
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// defaultRandomSource uses the global math/rand/v2 generator
type defaultRandomSource struct{}

func (r *defaultRandomSource) IntN(n int) int {
	return rand.IntN(n)
}

// Assembler stamps drafts with a receipt number and date
type Assembler struct {
	timeSource   TimeSource
	randomSource RandomSource
}

// NewAssembler creates a new Assembler with the wall clock and default randomness
func NewAssembler() *Assembler {
	return NewAssemblerWithDeps(&defaultTimeSource{}, &defaultRandomSource{})
}

// NewAssemblerWithDeps creates a new Assembler with custom dependencies for testing
func NewAssemblerWithDeps(timeSrc TimeSource, randSrc RandomSource) *Assembler {
	return &Assembler{
		timeSource:   timeSrc,
		randomSource: randSrc,
	}
}

// Assemble produces a finalized receipt from a draft. It always succeeds.
//
// Receipt numbers are "ORB-<last 6 digits of Unix ms>-<00..99>". They are only
// best-effort unique: two assemblies in the same millisecond collide 1 in 100.
func (a *Assembler) Assemble(draft Draft) *Receipt {
	now := a.timeSource.Now()

	return &Receipt{
		Draft:         draft,
		ReceiptNumber: receiptNumber(now, a.randomSource.IntN(100)),
		ReceiptDate:   now.UTC().Format(isoMillis),
	}
}

func receiptNumber(now time.Time, suffix int) string {
	return fmt.Sprintf("%s-%06d-%02d", receiptNumberPrefix, now.UnixMilli()%1_000_000, suffix)
}
