package document

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/entity"
)

// ContentTypeXLSX is the MIME type of rendered workbooks
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InvoiceSheet is the name of the single sheet in a rendered invoice
const InvoiceSheet = "Invoice"

// itemsHeaderRow is the row the line item table starts on
const itemsHeaderRow = 9

// Config holds letterhead values printed on every document
type Config struct {
	CompanyName string
	Currency    string
}

// InvoiceRenderer renders invoices as xlsx workbooks
type InvoiceRenderer struct {
	cfg    Config
	logger *zap.Logger
}

// NewInvoiceRenderer creates a new invoice renderer
func NewInvoiceRenderer(cfg Config, logger *zap.Logger) *InvoiceRenderer {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &InvoiceRenderer{
		cfg:    cfg,
		logger: logger,
	}
}

var _ port.DocumentRenderer = (*InvoiceRenderer)(nil)

// RenderInvoice implements port.DocumentRenderer
func (r *InvoiceRenderer) RenderInvoice(ctx context.Context, invoice *entity.Invoice) (*port.Document, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			r.logger.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", InvoiceSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	if err := r.fillHeader(f, styles, invoice); err != nil {
		return nil, err
	}
	last, err := r.fillItems(f, styles, invoice.Items)
	if err != nil {
		return nil, err
	}
	if err := r.fillTotals(f, styles, invoice, last+2); err != nil {
		return nil, err
	}

	for col, width := range map[string]float64{"A": 6, "B": 44, "C": 12, "D": 16, "E": 16} {
		if err := f.SetColWidth(InvoiceSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		r.logger.Error("Failed to write invoice workbook",
			zap.Int64("invoice_id", invoice.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Debug("Invoice rendered",
		zap.Int64("invoice_id", invoice.ID),
		zap.String("number", invoice.Number),
		zap.Int("bytes", buf.Len()))

	return &port.Document{
		FileName:    invoice.Number + ".xlsx",
		ContentType: ContentTypeXLSX,
		Content:     buf.Bytes(),
	}, nil
}

type sheetStyles struct {
	title int
	label int
	head  int
	money int
	total int
}

func newStyles(f *excelize.File) (*sheetStyles, error) {
	var s sheetStyles
	var err error
	moneyFmt := 4 // #,##0.00

	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}); err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if s.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if s.head, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	}); err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: moneyFmt}); err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if s.total, err = f.NewStyle(&excelize.Style{NumFmt: moneyFmt, Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	return &s, nil
}

func (r *InvoiceRenderer) fillHeader(f *excelize.File, s *sheetStyles, inv *entity.Invoice) error {
	title := "INVOICE"
	if r.cfg.CompanyName != "" {
		title = r.cfg.CompanyName + " - INVOICE"
	}
	if err := f.SetCellValue(InvoiceSheet, "A1", title); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	if err := f.SetCellStyle(InvoiceSheet, "A1", "A1", s.title); err != nil {
		return fmt.Errorf("failed to style title: %w", err)
	}

	rows := [][2]string{
		{"Number", inv.Number},
		{"Issue date", inv.IssueDate},
		{"Due date", inv.DueDate},
		{"Status", string(inv.Status)},
		{"Currency", r.cfg.Currency},
	}
	if inv.QuoteID != nil {
		rows = append(rows, [2]string{"Quote", "#" + strconv.FormatInt(*inv.QuoteID, 10)})
	}
	for i, kv := range rows {
		row := i + 3
		if err := f.SetCellValue(InvoiceSheet, cell("A", row), kv[0]); err != nil {
			return fmt.Errorf("failed to set header label: %w", err)
		}
		if err := f.MergeCell(InvoiceSheet, cell("A", row), cell("B", row)); err != nil {
			return fmt.Errorf("failed to merge header label: %w", err)
		}
		if err := f.SetCellStyle(InvoiceSheet, cell("A", row), cell("A", row), s.label); err != nil {
			return fmt.Errorf("failed to style header label: %w", err)
		}
		if err := f.SetCellValue(InvoiceSheet, cell("C", row), kv[1]); err != nil {
			return fmt.Errorf("failed to set header value: %w", err)
		}
	}
	return nil
}

// fillItems writes the item table and returns the last row used
func (r *InvoiceRenderer) fillItems(f *excelize.File, s *sheetStyles, items []*entity.InvoiceItem) (int, error) {
	head := []interface{}{"#", "Description", "Quantity", "Unit price", "Total"}
	if err := f.SetSheetRow(InvoiceSheet, cell("A", itemsHeaderRow), &head); err != nil {
		return 0, fmt.Errorf("failed to set item header: %w", err)
	}
	if err := f.SetCellStyle(InvoiceSheet, cell("A", itemsHeaderRow), cell("E", itemsHeaderRow), s.head); err != nil {
		return 0, fmt.Errorf("failed to style item header: %w", err)
	}

	row := itemsHeaderRow
	for i, item := range items {
		row = itemsHeaderRow + 1 + i
		values := []interface{}{
			i + 1,
			item.Description,
			item.Quantity.InexactFloat64(),
			money(item.UnitPrice),
			money(item.Total),
		}
		if err := f.SetSheetRow(InvoiceSheet, cell("A", row), &values); err != nil {
			return 0, fmt.Errorf("failed to set item row %d: %w", i+1, err)
		}
		if err := f.SetCellStyle(InvoiceSheet, cell("D", row), cell("E", row), s.money); err != nil {
			return 0, fmt.Errorf("failed to style item row %d: %w", i+1, err)
		}
	}
	return row, nil
}

func (r *InvoiceRenderer) fillTotals(f *excelize.File, s *sheetStyles, inv *entity.Invoice, start int) error {
	totals := []struct {
		label string
		value float64
		style int
	}{
		{"Subtotal", money(inv.Subtotal), s.money},
		{"Tax (%)", inv.Tax.InexactFloat64(), 0},
		{"Discount", money(inv.Discount), s.money},
		{"Total", money(inv.Total), s.total},
	}
	for i, t := range totals {
		row := start + i
		if err := f.SetCellValue(InvoiceSheet, cell("D", row), t.label); err != nil {
			return fmt.Errorf("failed to set %s label: %w", t.label, err)
		}
		if err := f.SetCellValue(InvoiceSheet, cell("E", row), t.value); err != nil {
			return fmt.Errorf("failed to set %s: %w", t.label, err)
		}
		if t.style != 0 {
			if err := f.SetCellStyle(InvoiceSheet, cell("E", row), cell("E", row), t.style); err != nil {
				return fmt.Errorf("failed to style %s: %w", t.label, err)
			}
		}
	}
	return nil
}

func cell(col string, row int) string {
	return col + strconv.Itoa(row)
}

func money(d decimal.Decimal) float64 {
	return d.Round(entity.MoneyPlaces).InexactFloat64()
}
