// Package google appends export blocks and activity rows to a Google
// spreadsheet through the Sheets v4 values API.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	activitySheet string
	logger        *log.Logger
	now           func() time.Time
}

var (
	_ export.ExpenseExporter = (*Client)(nil)
	_ export.ActivityWriter  = (*Client)(nil)
)

// Config names the target spreadsheet and tabs.
type Config struct {
	SpreadsheetID string
	ExpensesSheet string
	ActivitySheet string
}

// NewFromEnv creates a client authenticated with service account
// credentials found in the environment.
func NewFromEnv(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, cfg, logger), nil
}

// New wraps an existing service. Empty tab names default to Expenses and Activity.
func New(svc *gsheet.Service, cfg Config, logger *log.Logger) *Client {
	if cfg.ExpensesSheet == "" {
		cfg.ExpensesSheet = "Expenses"
	}
	if cfg.ActivitySheet == "" {
		cfg.ActivitySheet = "Activity"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		expensesSheet: cfg.ExpensesSheet,
		activitySheet: cfg.ActivitySheet,
		logger:        logger.WithComponent(log.ComponentSheets),
		now:           time.Now,
	}
}

// newSheetsService reads GOOGLE_SERVICE_ACCOUNT_JSON, then
// GOOGLE_SERVICE_ACCOUNT_FILE, then GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case inline != "":
		credentials = []byte(inline)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	if logger != nil {
		logger.DebugContext(ctx, "Creating Google Sheets service",
			"inline", inline != "", "credentials_size", len(credentials))
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// ExportExpenses appends one export block below the existing content of the
// expenses tab and returns the written range.
func (c *Client) ExportExpenses(ctx context.Context, owner string, r core.DateRange, items []core.Expense) (string, error) {
	rows := export.ExpenseRows(owner, r, items, c.now())
	ref, err := c.append(ctx, c.expensesSheet, rows)
	if err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "Expenses exported",
		log.FieldOperation, log.OpExport,
		log.FieldUsername, owner,
		log.FieldRange, r.String(),
		log.FieldCount, len(items),
		log.FieldSheetsRef, ref)
	return ref, nil
}

// AppendActivity appends a single row to the activity tab.
func (c *Client) AppendActivity(ctx context.Context, ev events.Event) (string, error) {
	return c.append(ctx, c.activitySheet, [][]any{export.ActivityRow(ev)})
}

func (c *Client) append(ctx context.Context, sheet string, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A1", sheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return sheet, nil
}
