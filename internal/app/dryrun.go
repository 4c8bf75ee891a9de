package app

import (
	"context"

	"auction_watch/internal/sheets"

	"github.com/rs/zerolog/log"
)

// DryRunStore reads from the real sheet and logs writes instead of sending them.
type DryRunStore struct {
	sheets.Reader
}

func (DryRunStore) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}, mode sheets.InputMode) error {
	log.Info().Str("range", range_).Interface("values", values).Str("mode", string(mode)).Msg("Dry run: skipping update")
	return nil
}

func (DryRunStore) BatchUpdate(ctx context.Context, spreadsheetID string, instructions []sheets.Instruction, mode sheets.InputMode) error {
	for _, in := range instructions {
		log.Info().Str("range", in.Range).Str("value", in.Value).Str("mode", string(mode)).Msg("Dry run: skipping update")
	}
	return nil
}

// DryRunMailer logs alerts instead of sending them.
type DryRunMailer struct{}

func (DryRunMailer) Send(ctx context.Context, to, subject, body string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("Dry run: skipping mail")
	return nil
}
