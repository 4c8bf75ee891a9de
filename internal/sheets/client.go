package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// InputMode is the Sheets valueInputOption used for a write.
type InputMode string

const (
	// Raw stores values literally.
	Raw InputMode = "RAW"
	// UserEntered lets the spreadsheet interpret values, so formulas evaluate.
	UserEntered InputMode = "USER_ENTERED"
)

// Client is a thin wrapper over the Sheets v4 values API.
type Client struct {
	service *sheets.Service
}

// NewClient authenticates with a service-account credentials JSON document.
func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	return resp.Values, nil
}

// ReadRanges fetches several ranges in one request. The result is aligned
// with ranges; a range with no data yields a nil matrix.
func (c *Client) ReadRanges(ctx context.Context, spreadsheetID string, ranges []string) ([][][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.BatchGet(spreadsheetID).
		Ranges(ranges...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read ranges: %w", err)
	}

	out := make([][][]interface{}, len(ranges))
	for i, vr := range resp.ValueRanges {
		if i >= len(out) {
			break
		}
		out[i] = vr.Values
	}
	return out, nil
}

func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}, mode InputMode) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, range_, valueRange).
		ValueInputOption(string(mode)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update range: %w", err)
	}

	return nil
}

// BatchUpdate writes every instruction in a single values.batchUpdate call.
func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, instructions []Instruction, mode InputMode) error {
	data := make([]*sheets.ValueRange, 0, len(instructions))
	for _, in := range instructions {
		data = append(data, &sheets.ValueRange{
			Range:  in.Range,
			Values: [][]interface{}{{in.Value}},
		})
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: string(mode),
		Data:             data,
	}
	_, err := c.service.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to batch update %d ranges: %w", len(instructions), err)
	}

	return nil
}
