package calllog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrSheetUnavailable is returned while the circuit to the spreadsheet is
// open.
var ErrSheetUnavailable = errors.New("spreadsheet temporarily unavailable")

// SheetsConfig configures the spreadsheet appender.
type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
	Timeout         time.Duration

	// The circuit opens after FailureThreshold consecutive failures and
	// allows a trial append after ResetTimeout.
	FailureThreshold uint32
	ResetTimeout     time.Duration
}

func (c *SheetsConfig) defaults() {
	if c.Range == "" {
		c.Range = "Sheet1!A1"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 3
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
}

// SheetsAppender appends rows to a Google spreadsheet.
type SheetsAppender struct {
	svc     *sheets.Service
	id      string
	rng     string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[*sheets.AppendValuesResponse]
}

// NewSheetsAppender creates an appender. Credentials come from
// cfg.CredentialsFile when set, otherwise from opts or the environment.
func NewSheetsAppender(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*SheetsAppender, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	cfg.defaults()

	if cfg.CredentialsFile != "" {
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read google credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[*sheets.AppendValuesResponse](gobreaker.Settings{
		Name:        "sheets",
		MaxRequests: 1,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &SheetsAppender{
		svc:     svc,
		id:      cfg.SpreadsheetID,
		rng:     cfg.Range,
		timeout: cfg.Timeout,
		breaker: breaker,
	}, nil
}

// Append adds row after the last row of the configured range.
func (a *SheetsAppender) Append(ctx context.Context, row []any) error {
	_, err := a.breaker.Execute(func() (*sheets.AppendValuesResponse, error) {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return a.svc.Spreadsheets.Values.
			Append(a.id, a.rng, &sheets.ValueRange{Values: [][]any{row}}).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrSheetUnavailable
	}
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// State reports the circuit state: closed, half-open or open.
func (a *SheetsAppender) State() string {
	return a.breaker.State().String()
}
