package sheets_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"auction_watch/internal/sheets"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestIsRetryable(t *testing.T) {
	wrap := func(code int) error {
		return fmt.Errorf("failed to read sheet: %w", &googleapi.Error{Code: code})
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"forbidden", wrap(403), false},
		{"not found", wrap(404), false},
		{"bad range", wrap(400), false},
		{"rate limited", wrap(429), true},
		{"server error", wrap(503), true},
		{"transport error", errors.New("connection reset by peer"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sheets.IsRetryable(tt.err))
		})
	}
}
