// Package google loads the ride snapshot from three tabs of a Google
// Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ridesdash/internal/core"
	"ridesdash/internal/records"
)

// Config selects the spreadsheet, its tabs and the service account used to read them.
type Config struct {
	SpreadsheetID   string
	LocationsSheet  string
	CategoriesSheet string
	RidesSheet      string

	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ranges        [3]string
}

// Ensure interface conformance
var (
	_ records.Loader  = (*Client)(nil)
	_ records.Checker = (*Client)(nil)
)

// New creates a read-only Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		ranges: [3]string{
			sheetRange(cfg.LocationsSheet),
			sheetRange(cfg.CategoriesSheet),
			sheetRange(cfg.RidesSheet),
		},
	}, nil
}

func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", cfg.CredentialsFile, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// sheetRange quotes the tab name so names with spaces resolve to the whole sheet.
func sheetRange(name string) string {
	name = strings.TrimSpace(name)
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// Load reads all three tabs in a single BatchGet call.
func (c *Client) Load(ctx context.Context) (core.Snapshot, error) {
	if c.svc == nil {
		return core.Snapshot{}, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(c.ranges[:]...).
		Context(ctx).
		Do()
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("batch get %v: %w", c.ranges, err)
	}
	if len(resp.ValueRanges) != len(c.ranges) {
		return core.Snapshot{}, fmt.Errorf("batch get returned %d ranges, want %d", len(resp.ValueRanges), len(c.ranges))
	}

	var tables [3]core.Table
	for i, vr := range resp.ValueRanges {
		tables[i] = tableFromValues(vr.Values)
	}
	return core.SnapshotFromTables(tables[0], tables[1], tables[2]), nil
}

// Check fetches spreadsheet metadata only.
func (c *Client) Check(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	return nil
}

// tableFromValues treats the first row as header and the rest as data.
// Trailing empty cells are omitted by the API; core.Table fills them in.
func tableFromValues(values [][]interface{}) core.Table {
	if len(values) == 0 {
		return core.Table{}
	}
	t := core.Table{Header: toStrings(values[0])}
	for _, row := range values[1:] {
		if len(row) == 0 {
			continue
		}
		t.Rows = append(t.Rows, toStrings(row))
	}
	return t
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
