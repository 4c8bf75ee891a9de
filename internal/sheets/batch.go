package sheets

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// Instruction is a single-cell write.
type Instruction struct {
	Range string
	Value string
}

// Writer is the write half of the spreadsheet range store.
type Writer interface {
	UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}, mode InputMode) error
	BatchUpdate(ctx context.Context, spreadsheetID string, instructions []Instruction, mode InputMode) error
}

// Batcher accumulates write instructions for a whole run so they can be
// flushed in one request. It is not safe for concurrent use; the run loop
// is its only writer.
type Batcher struct {
	instructions []Instruction
}

func NewBatcher() *Batcher {
	return &Batcher{}
}

// Add queues value for range_.
func (b *Batcher) Add(range_, value string) {
	b.instructions = append(b.instructions, Instruction{Range: range_, Value: value})
}

func (b *Batcher) Len() int {
	return len(b.instructions)
}

// Instructions returns a copy of the queued instructions in insertion order.
func (b *Batcher) Instructions() []Instruction {
	out := make([]Instruction, len(b.instructions))
	copy(out, b.instructions)
	return out
}

// Mode picks USER_ENTERED when any queued value is a formula, RAW otherwise.
func (b *Batcher) Mode() InputMode {
	for _, in := range b.instructions {
		if IsFormula(in.Value) {
			return UserEntered
		}
	}
	return Raw
}

// Flush sends every queued instruction in one batch call and returns how many
// were sent. An empty batch makes no call. The batch is cleared only when the
// call succeeds; on failure nothing is retried here.
func (b *Batcher) Flush(ctx context.Context, w Writer, spreadsheetID string) (int, error) {
	if len(b.instructions) == 0 {
		log.Info().Msg("No updates to apply")
		return 0, nil
	}

	mode := b.Mode()
	n := len(b.instructions)
	log.Debug().
		Int("instructions", n).
		Str("mode", string(mode)).
		Msg("Flushing batched updates")

	if err := w.BatchUpdate(ctx, spreadsheetID, b.Instructions(), mode); err != nil {
		return 0, err
	}

	b.instructions = nil
	log.Info().Int("instructions", n).Str("mode", string(mode)).Msg("Batched updates written")
	return n, nil
}

// IsFormula reports whether value would be evaluated as a formula.
func IsFormula(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "=")
}
