// Package orderform renders the printable order form handed to the florist
// once an order is paid.
package orderform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/render"
)

const sheetName = "Бланк"

// Generator writes one .xlsx file per order into Dir.
type Generator struct {
	dir     string
	render  *render.Renderer
	address string
}

func New(dir string, r *render.Renderer, pickupAddress string) *Generator {
	return &Generator{dir: dir, render: r, address: pickupAddress}
}

// Render writes the form for order and returns its path. An existing form
// for the same order is overwritten.
func (g *Generator) Render(ctx context.Context, order *models.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating order forms dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", err
	}
	if err := g.fill(f, order); err != nil {
		return "", fmt.Errorf("filling order form %s: %w", order.Number, err)
	}

	path := filepath.Join(g.dir, fmt.Sprintf("order_%s.xlsx", order.Number))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving order form %s: %w", order.Number, err)
	}
	return path, nil
}

func (g *Generator) fill(f *excelize.File, order *models.Order) error {
	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "D1"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, "A1", fmt.Sprintf("БЛАНК ЗАКАЗА №%s", order.Number)); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", title); err != nil {
		return err
	}

	fields := [][2]string{
		{"Получатель", render.Recipient(order.Recipient)},
		{"Телефон", order.Phone},
		{"Самовывоз", g.render.SlotLabel(order.PickupAt)},
		{"Адрес", g.address},
		{"Сумма", render.Money(order.Total)},
	}
	row := 3
	for _, field := range fields {
		if err := setRow(f, row, field[0], field[1]); err != nil {
			return err
		}
		row++
	}

	row++
	headers := []string{"Вариант", "Тюльпанов в букете", "Букетов", "Отметка"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(headers), row)
	if err := f.SetCellStyle(sheetName, first, last, label); err != nil {
		return err
	}
	for _, item := range order.Items {
		row++
		values := []any{g.render.VariantLabel(item.Variant), item.Quantity, item.Count, ""}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	labelEnd, _ := excelize.CoordinatesToCellName(1, len(fields)+2)
	if err := f.SetCellStyle(sheetName, "A3", labelEnd, label); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "A", 30); err != nil {
		return err
	}
	return f.SetColWidth(sheetName, "B", "D", 22)
}

func setRow(f *excelize.File, row int, name, value string) error {
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), name); err != nil {
		return err
	}
	return f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), value)
}
