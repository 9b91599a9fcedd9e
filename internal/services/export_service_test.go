package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubLedgerSource struct {
	proj       *models.Projection
	rows       []projection.LedgerRow
	err        error
	scenario   projection.Scenario
}

func (s *stubLedgerSource) Ledger(ctx context.Context, meta RequestMeta, id uint, sc projection.Scenario) (*models.Projection, []projection.LedgerRow, error) {
	s.scenario = sc
	return s.proj, s.rows, s.err
}

func sampleLedgerSource() *stubLedgerSource {
	return &stubLedgerSource{
		proj: &models.Projection{
			ID:       42,
			Title:    "Studio Vila Mariana",
			Client:   models.Client{ID: 1, Name: "Ana Souza"},
			Property: models.Property{ID: 2, Name: "Edifício Aurora"},
			CalculationResults: &projection.CalculationResults{
				Scenario: projection.ScenarioStandard,
			},
		},
		rows: []projection.LedgerRow{
			{Month: 0, DownPayment: 50000, TotalPayment: 50000, RemainingBalance: 200000, CorrectedBalance: 200000},
			{Month: 1, CorrectionRate: 0.5, CumulativeFactor: 1.005, BaseInstallment: 10000, CorrectedInstallment: 10050, TotalPayment: 10050, RemainingBalance: 190000, CorrectedBalance: 190950},
		},
	}
}

func newTestExportService(src LedgerSource) *ExportService {
	svc := NewExportService(src)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportService_CSV(t *testing.T) {
	svc := newTestExportService(sampleLedgerSource())

	file, err := svc.Export(context.Background(), RequestMeta{UserID: 1, Locale: "pt"}, 42, "", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "fluxo_projecao_42_2025-03-01.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	reader := csv.NewReader(bytes.NewReader(file.Data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, "Studio Vila Mariana", records[0][0])
	assert.Equal(t, "Mês", records[1][0])
	assert.Equal(t, "Ato", records[2][0])
	assert.Equal(t, "50000.00", records[2][2])
	assert.Equal(t, "Mês 1", records[3][0])
	assert.Equal(t, "0.5000", records[3][1])
	assert.Equal(t, "10050.00", records[3][4])

	total := records[4]
	assert.Equal(t, "Total", total[0])
	assert.Equal(t, "60050.00", total[9])
}

func TestExportService_XLSX(t *testing.T) {
	svc := newTestExportService(sampleLedgerSource())

	file, err := svc.Export(context.Background(), RequestMeta{UserID: 1, Locale: "en"}, 42, projection.ScenarioStandard, ExportXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Cash Flow", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Studio Vila Mariana", title)

	header, _ := f.GetCellValue("Cash Flow", "A4")
	assert.Equal(t, "Month", header)
	signing, _ := f.GetCellValue("Cash Flow", "A5")
	assert.Equal(t, "Signing", signing)
	totalLabel, _ := f.GetCellValue("Cash Flow", "A7")
	assert.Equal(t, "Total", totalLabel)
}

func TestExportService_PDF(t *testing.T) {
	svc := newTestExportService(sampleLedgerSource())

	file, err := svc.Export(context.Background(), RequestMeta{UserID: 1}, 42, "", ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportService_EmptyLedger(t *testing.T) {
	src := sampleLedgerSource()
	src.rows = nil
	svc := newTestExportService(src)

	for _, format := range []string{ExportCSV, ExportXLSX, ExportPDF} {
		file, err := svc.Export(context.Background(), RequestMeta{UserID: 1}, 42, "", format)
		require.NoError(t, err, format)
		assert.NotEmpty(t, file.Data, format)
	}
}

func TestExportService_Errors(t *testing.T) {
	svc := newTestExportService(sampleLedgerSource())
	_, err := svc.Export(context.Background(), RequestMeta{UserID: 1}, 42, "", "docx")
	assert.ErrorIs(t, err, ErrInvalidInput)

	svc = newTestExportService(&stubLedgerSource{err: ErrNotFound})
	_, err = svc.Export(context.Background(), RequestMeta{UserID: 1}, 42, "", ExportCSV)
	assert.ErrorIs(t, err, ErrNotFound)
}
