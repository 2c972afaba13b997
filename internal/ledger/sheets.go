package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/kuznetsov-tulips/tulip-bot/internal/catalog"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

const valueInputRaw = "RAW"

var errNotConfigured = errors.New("ledger: spreadsheet not configured")

type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	Worksheet       string
}

// valuesAPI is the slice of the Sheets values resource the ledger needs.
type valuesAPI interface {
	Append(ctx context.Context, rng string, rows [][]any) error
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, rows [][]any) error
}

type Sheets struct {
	values    valuesAPI
	worksheet string
	catalog   *catalog.Catalog
	loc       *time.Location
}

func NewSheets(ctx context.Context, cfg SheetsConfig, cat *catalog.Catalog, loc *time.Location) (*Sheets, error) {
	if cfg.SpreadsheetID == "" || cfg.CredentialsPath == "" {
		return nil, errNotConfigured
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return newSheets(&sheetsValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.Worksheet, cat, loc), nil
}

func newSheets(values valuesAPI, worksheet string, cat *catalog.Catalog, loc *time.Location) *Sheets {
	if worksheet == "" {
		worksheet = "Заказы"
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &Sheets{values: values, worksheet: worksheet, catalog: cat, loc: loc}
}

// Record appends the order as a new row.
func (s *Sheets) Record(ctx context.Context, order *models.Order) error {
	if err := s.values.Append(ctx, s.rng("A:N"), [][]any{Row(order, s.catalog, s.loc)}); err != nil {
		return fmt.Errorf("appending order %s: %w", order.Number, err)
	}
	return nil
}

// Update rewrites the row of an already recorded order, or appends it when
// the order was never recorded.
func (s *Sheets) Update(ctx context.Context, order *models.Order) error {
	numbers, err := s.values.Get(ctx, s.rng("B:B"))
	if err != nil {
		return fmt.Errorf("reading order numbers: %w", err)
	}
	for i, cells := range numbers {
		if len(cells) == 0 || fmt.Sprint(cells[0]) != order.Number {
			continue
		}
		row := i + 1
		rng := s.rng(fmt.Sprintf("A%d:N%d", row, row))
		if err := s.values.Update(ctx, rng, [][]any{Row(order, s.catalog, s.loc)}); err != nil {
			return fmt.Errorf("updating order %s: %w", order.Number, err)
		}
		return nil
	}
	return s.Record(ctx, order)
}

func (s *Sheets) rng(cells string) string {
	return fmt.Sprintf("'%s'!%s", s.worksheet, cells)
}

type sheetsValues struct {
	svc           *sheets.Service
	spreadsheetID string
}

func (v *sheetsValues) Append(ctx context.Context, rng string, rows [][]any) error {
	_, err := v.svc.Spreadsheets.Values.
		Append(v.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (v *sheetsValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(v.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v *sheetsValues) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := v.svc.Spreadsheets.Values.
		Update(v.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	return err
}
