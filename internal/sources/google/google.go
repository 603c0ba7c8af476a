// Package google reads the order dataset from a Google Sheets range using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ecomdash/internal/sources"
)

// Options configure the client. Exactly one credentials field is needed
// unless ClientOptions already carry authentication.
type Options struct {
	SpreadsheetID   string
	Range           string // A1 notation, e.g. "all_data!A:H"
	CredentialsFile string
	CredentialsJSON string

	// ClientOptions are appended after the credentials; tests point the
	// client at a fake endpoint here.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
}

var _ sources.RecordReader = (*Client)(nil)

// New creates a Sheets client.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(opts.Range) == "" {
		return nil, errors.New("missing sheet range")
	}

	clientOpts, err := credentialOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, rng: opts.Range}, nil
}

// credentialOptions resolves service account credentials from inline JSON or
// a file. When neither is set, ClientOptions must provide authentication.
func credentialOptions(ctx context.Context, opts Options) ([]goption.ClientOption, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	case len(opts.ClientOptions) > 0:
		return nil, nil
	default:
		return nil, errors.New("missing service account credentials")
	}

	slog.DebugContext(ctx, "Using service account credentials",
		"component", "sheets",
		"credentials_size", len(credentialsJSON))

	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
	}, nil
}

// Records reads the configured range. The first row is the header.
func (c *Client) Records(ctx context.Context) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.rng, err)
	}

	records := toRecords(resp.Values)
	slog.InfoContext(ctx, "Sheet range read",
		"component", "sheets",
		"range", c.rng,
		"rows", len(records),
		"duration_ms", time.Since(start).Milliseconds())
	return records, nil
}
