package processing

import (
	"strings"
	"time"

	"auction_watch/internal/sheets"
)

// Skip reasons reported on RowOutcome.
const (
	ReasonEmptyURL = "empty url"
	ReasonExpired  = "auction ended"
	ReasonAlerted  = "already alerted"
)

// ShouldProcess decides whether row is worth a page visit. An auction end
// that did not parse places no constraint on the row. With skipAlerted set,
// rows that already carry an alert timestamp are left alone.
func ShouldProcess(row sheets.Row, now time.Time, skipAlerted bool) (bool, string) {
	if strings.TrimSpace(row.URL) == "" {
		return false, ReasonEmptyURL
	}
	if row.HasAuctionEnd && row.AuctionEnd.Before(now) {
		return false, ReasonExpired
	}
	if skipAlerted && row.Alerted() {
		return false, ReasonAlerted
	}
	return true, ""
}
