package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// firstDataRow is the first row below the header.
const firstDataRow = 2

// Reader is the read half of the spreadsheet range store.
type Reader interface {
	ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error)
	ReadRanges(ctx context.Context, spreadsheetID string, ranges []string) ([][][]interface{}, error)
}

// RangeStore is everything the pipeline needs from the spreadsheet.
type RangeStore interface {
	Reader
	Writer
}

// Layout names the sheet tab and the column letter of every role.
type Layout struct {
	Sheet string

	KeyColumn     string // row count source
	URLColumn     string
	EndColumn     string
	AlertedColumn string // read as the already-alerted flag, written with the alert time
	EmailColumn   string

	PriceColumn string
	ImageColumn string // empty disables image output
}

// DefaultLayout matches the InHunt tracking sheet.
func DefaultLayout() Layout {
	return Layout{
		Sheet:         "InHunt",
		KeyColumn:     "A",
		URLColumn:     "N",
		EndColumn:     "V",
		AlertedColumn: "W",
		EmailColumn:   "X",
		PriceColumn:   "R",
		ImageColumn:   "S",
	}
}

// Cell returns the A1 range of a single cell on the layout's sheet.
func (l Layout) Cell(column string, row int) string {
	return fmt.Sprintf("%s!%s%d", quoteSheet(l.Sheet), column, row)
}

// Column returns the A1 range of column from the first data row to lastRow,
// or open-ended when lastRow is zero.
func (l Layout) Column(column string, lastRow int) string {
	if lastRow <= 0 {
		return fmt.Sprintf("%s!%s%d:%s", quoteSheet(l.Sheet), column, firstDataRow, column)
	}
	return fmt.Sprintf("%s!%s%d:%s%d", quoteSheet(l.Sheet), column, firstDataRow, column, lastRow)
}

func quoteSheet(name string) string {
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}

// Row is one tracked auction listing.
type Row struct {
	Index int // 1-based sheet row

	URL           string
	AuctionEndRaw string
	AuctionEnd    time.Time
	HasAuctionEnd bool
	AlertedAt     string
	Recipient     string
}

// Alerted reports whether a notification was already recorded for the row.
func (r Row) Alerted() bool {
	return strings.TrimSpace(r.AlertedAt) != ""
}

// ReadRows sizes the data set from the key column, then fetches the URL,
// auction end, alerted and recipient columns in one request. Missing cells
// become empty strings.
func ReadRows(ctx context.Context, r Reader, spreadsheetID string, layout Layout, loc *time.Location) ([]Row, error) {
	keys, err := r.ReadSheet(ctx, spreadsheetID, layout.Column(layout.KeyColumn, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to read key column: %w", err)
	}
	rowCount := len(keys)
	log.Info().Int("rows", rowCount).Str("column", layout.KeyColumn).Msg("Found rows in key column")
	if rowCount == 0 {
		return nil, nil
	}

	lastRow := rowCount + firstDataRow - 1
	ranges := []string{
		layout.Column(layout.URLColumn, lastRow),
		layout.Column(layout.EndColumn, lastRow),
		layout.Column(layout.AlertedColumn, lastRow),
		layout.Column(layout.EmailColumn, lastRow),
	}
	columns, err := r.ReadRanges(ctx, spreadsheetID, ranges)
	if err != nil {
		return nil, fmt.Errorf("failed to read row columns: %w", err)
	}
	for len(columns) < len(ranges) {
		columns = append(columns, nil)
	}

	rows := make([]Row, 0, rowCount)
	for i := 0; i < rowCount; i++ {
		row := Row{
			Index:         i + firstDataRow,
			URL:           strings.TrimSpace(cellString(columns[0], i)),
			AuctionEndRaw: strings.TrimSpace(cellString(columns[1], i)),
			AlertedAt:     strings.TrimSpace(cellString(columns[2], i)),
			Recipient:     strings.TrimSpace(cellString(columns[3], i)),
		}
		row.AuctionEnd, row.HasAuctionEnd = ParseTimestamp(row.AuctionEndRaw, loc)
		rows = append(rows, row)
	}

	log.Debug().Int("rows", len(rows)).Msg("Loaded sheet rows")
	return rows, nil
}

// cellString safely extracts the first cell of row i in a single-column matrix.
func cellString(matrix [][]interface{}, i int) string {
	if i >= len(matrix) || len(matrix[i]) == 0 || matrix[i][0] == nil {
		return ""
	}
	return fmt.Sprintf("%v", matrix[i][0])
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"Mon Jan 2 2006 15:04:05",
}

// ParseTimestamp accepts the formats the sheet is known to hold. Values
// without a zone are read in loc. An unparseable value returns false.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
