package sheets

import (
	"context"
	"fmt"

	sheetsv4 "google.golang.org/api/sheets/v4"

	"event-registration/internal/models"
)

const (
	SheetParticipants = "Participants"
	SheetResults      = "Results"
)

func (c *Client) readAll(ctx context.Context, sheet string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A:Z").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) appendRow(ctx context.Context, sheet string, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:Z", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (c *Client) updateCell(ctx context.Context, sheet, a1 string, value interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{{value}}}
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!"+a1, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// EnsureHeaders writes the header row into any sheet that is still empty.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	for sheet, cols := range map[string][]string{
		SheetParticipants: models.ParticipantColumns,
		SheetResults:      models.ResultColumns,
	} {
		values, err := c.readAll(ctx, sheet)
		if err != nil {
			return fmt.Errorf("read %s: %w", sheet, err)
		}
		if len(values) > 0 {
			continue
		}
		row := make([]interface{}, len(cols))
		for i, col := range cols {
			row[i] = col
		}
		if err := c.appendRow(ctx, sheet, row); err != nil {
			return fmt.Errorf("header %s: %w", sheet, err)
		}
	}
	return nil
}

// ---------- Participants & Results ----------

func (c *Client) AppendRegistration(ctx context.Context, p models.Participant, status models.Status) error {
	if err := c.appendRow(ctx, SheetParticipants, p.Row()); err != nil {
		return fmt.Errorf("append participant: %w", err)
	}
	if err := c.appendRow(ctx, SheetResults, models.Result{RegNo: p.RegNo, Status: status}.Row()); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

// UpdateStatus rewrites the status cell of every Results row for regNo.
func (c *Client) UpdateStatus(ctx context.Context, regNo string, status models.Status) error {
	values, err := c.readAll(ctx, SheetResults)
	if err != nil {
		return err
	}
	found := false
	// header row at index 0
	for i := 1; i < len(values); i++ {
		if get(values[i], 0) != regNo {
			continue
		}
		found = true
		a1 := fmt.Sprintf("B%d", i+1) // sheet rows are 1-indexed
		if err := c.updateCell(ctx, SheetResults, a1, string(status)); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("result %s not found", regNo)
	}
	return nil
}

// Submitted mirrors a new registration.
func (c *Client) Submitted(ctx context.Context, p models.Participant, status models.Status) {
	if err := c.AppendRegistration(ctx, p, status); err != nil {
		c.logger.Warn("mirror registration", "reg_no", p.RegNo, "error", err)
	}
}

// StatusChanged mirrors a review decision.
func (c *Client) StatusChanged(ctx context.Context, regNo string, status models.Status) {
	if err := c.UpdateStatus(ctx, regNo, status); err != nil {
		c.logger.Warn("mirror status", "reg_no", regNo, "error", err)
	}
}

// ---------- helpers ----------

func get(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprint(row[idx])
}
