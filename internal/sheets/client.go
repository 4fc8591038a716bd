package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// Client mirrors the registration tables into a spreadsheet. The CSV files
// stay authoritative; mirror failures are logged and dropped.
type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	logger        *slog.Logger
}

func New(ctx context.Context, serviceAccountJSONPath, spreadsheetID string, logger *slog.Logger) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	return NewWithOptions(ctx, spreadsheetID, logger,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
}

func NewWithOptions(ctx context.Context, spreadsheetID string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	srv, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID, logger: logger.With("component", "sheets")}, nil
}

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }
