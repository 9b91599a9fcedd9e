package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/xuri/excelize/v2"
)

// Export formats
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
	ExportPDF  = "pdf"
)

var exportContentTypes = map[string]string{
	ExportCSV:  "text/csv; charset=utf-8",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportPDF:  "application/pdf",
}

// LedgerSource loads the stored ledger of a projection scenario
type LedgerSource interface {
	Ledger(ctx context.Context, meta RequestMeta, id uint, sc projection.Scenario) (*models.Projection, []projection.LedgerRow, error)
}

// LedgerSheet is a ledger ready to be written in any export format
type LedgerSheet struct {
	Title       string
	ClientName  string
	Property    string
	Scenario    string
	Locale      string
	GeneratedAt time.Time
	Rows        []projection.LedgerRow
	Totals      projection.LedgerTotals
}

// ExportFile is a rendered export
type ExportFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

type ExportService struct {
	ledgers LedgerSource
	now     func() time.Time
}

func NewExportService(ledgers LedgerSource) *ExportService {
	return &ExportService{ledgers: ledgers, now: time.Now}
}

// Export renders the ledger of a projection scenario in the requested format
func (s *ExportService) Export(ctx context.Context, meta RequestMeta, id uint, sc projection.Scenario, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if _, ok := exportContentTypes[format]; !ok {
		return nil, fmt.Errorf("%w: formato %q", ErrInvalidInput, format)
	}

	p, rows, err := s.ledgers.Ledger(ctx, meta, id, sc)
	if err != nil {
		return nil, err
	}
	if sc == "" && p.CalculationResults != nil {
		sc = p.CalculationResults.Scenario
	}

	sheet := LedgerSheet{
		Title:       p.Title,
		ClientName:  p.Client.Name,
		Property:    p.Property.Name,
		Scenario:    sc.Label(meta.Locale),
		Locale:      meta.Locale,
		GeneratedAt: s.now(),
		Rows:        rows,
		Totals:      projection.Totals(rows),
	}

	var data []byte
	switch format {
	case ExportCSV:
		data, err = sheet.CSV()
	case ExportXLSX:
		data, err = sheet.XLSX()
	case ExportPDF:
		data, err = sheet.PDF()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to export ledger as %s: %w", format, err)
	}

	return &ExportFile{
		Data:        data,
		Filename:    fmt.Sprintf("fluxo_projecao_%d_%s.%s", p.ID, sheet.GeneratedAt.Format("2006-01-02"), format),
		ContentType: exportContentTypes[format],
	}, nil
}

var ledgerHeaders = map[string][]string{
	"pt": {"Mês", "Correção (%)", "Entrada", "Parcela", "Parcela Corrigida", "Reforço", "Reforço Corrigido", "Chaves", "Chaves Corrigidas", "Total Pago", "Saldo Devedor", "Saldo Corrigido"},
	"en": {"Month", "Correction (%)", "Down Payment", "Installment", "Corrected Installment", "Boost", "Corrected Boost", "Keys", "Corrected Keys", "Total Paid", "Balance", "Corrected Balance"},
}

func headersFor(locale string) []string {
	if h, ok := ledgerHeaders[locale]; ok {
		return h
	}
	return ledgerHeaders["pt"]
}

func rowValues(r projection.LedgerRow) []float64 {
	return []float64{
		r.DownPayment, r.BaseInstallment, r.CorrectedInstallment,
		r.BaseBoost, r.CorrectedBoost, r.BaseKeys, r.CorrectedKeys,
		r.TotalPayment, r.RemainingBalance, r.CorrectedBalance,
	}
}

func totalValues(t projection.LedgerTotals) []float64 {
	return []float64{
		t.DownPayment, t.BaseInstallments, t.CorrectedInstallments,
		t.BaseBoosts, t.CorrectedBoosts, t.BaseKeys, t.CorrectedKeys,
		t.TotalPaid,
	}
}

// CSV writes plain numbers with a dot decimal separator so spreadsheets can re-import them
func (l LedgerSheet) CSV() ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)

	_ = w.Write([]string{l.Title, l.Scenario, l.GeneratedAt.Format("2006-01-02 15:04")})
	if err := w.Write(headersFor(l.Locale)); err != nil {
		return nil, err
	}
	for _, r := range l.Rows {
		record := []string{monthLabel(r.Month, l.Locale), fmt.Sprintf("%.4f", r.CorrectionRate)}
		for _, v := range rowValues(r) {
			record = append(record, fmt.Sprintf("%.2f", v))
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	totals := []string{"Total", ""}
	for _, v := range totalValues(l.Totals) {
		totals = append(totals, fmt.Sprintf("%.2f", v))
	}
	_ = w.Write(totals)

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l LedgerSheet) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Fluxo"
	if l.Locale == "en" {
		sheet = "Cash Flow"
	}
	_ = f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	moneyFmt := `"R$" #,##0.00`
	moneyStyle, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	totalStyle, _ := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		CustomNumFmt: &moneyFmt,
	})

	_ = f.SetCellValue(sheet, "A1", l.Title)
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	_ = f.SetCellValue(sheet, "A2", fmt.Sprintf("%s · %s · %s", l.ClientName, l.Property, l.Scenario))

	headers := headersFor(l.Locale)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		_ = f.SetCellValue(sheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellStyle(sheet, "A4", lastCol+"4", headerStyle)

	row := 5
	for _, r := range l.Rows {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), monthLabel(r.Month, l.Locale))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.CorrectionRate)
		for i, v := range rowValues(r) {
			cell, _ := excelize.CoordinatesToCellName(i+3, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}
	if len(l.Rows) > 0 {
		_ = f.SetCellStyle(sheet, "C5", fmt.Sprintf("%s%d", lastCol, row-1), moneyStyle)
	}

	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	for i, v := range totalValues(l.Totals) {
		cell, _ := excelize.CoordinatesToCellName(i+3, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), totalStyle)

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", lastCol, 18)
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 4, TopLeftCell: "A5", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDF renders a landscape table. Core fonts are cp1252, so text goes through the unicode translator.
func (l LedgerSheet) PDF() ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr(l.Title))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s - %s - %s", l.ClientName, l.Property, l.Scenario)))
	pdf.Ln(9)

	headers := headersFor(l.Locale)
	widths := []float64{18, 19}
	for range headers[2:] {
		widths = append(widths, 24)
	}

	pdf.SetFont("Arial", "B", 7)
	pdf.SetFillColor(31, 78, 120)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	pdf.SetTextColor(0, 0, 0)
	for _, r := range l.Rows {
		pdf.CellFormat(widths[0], 6, tr(monthLabel(r.Month, l.Locale)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, FormatDecimal(r.CorrectionRate, 4), "1", 0, "R", false, 0, "")
		for i, v := range rowValues(r) {
			pdf.CellFormat(widths[i+2], 6, FormatBRL(v), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 7)
	pdf.SetFillColor(224, 224, 224)
	pdf.CellFormat(widths[0]+widths[1], 6, "Total", "1", 0, "L", true, 0, "")
	for i, v := range totalValues(l.Totals) {
		pdf.CellFormat(widths[i+2], 6, FormatBRL(v), "1", 0, "R", true, 0, "")
	}
	pdf.CellFormat(widths[len(widths)-2]+widths[len(widths)-1], 6, "", "1", 0, "", true, 0, "")
	pdf.Ln(-1)

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
