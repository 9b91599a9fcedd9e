package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/storage"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

//go:embed templates/reports/*.html
var reportTemplates embed.FS

var projectionReport = template.Must(template.ParseFS(reportTemplates, "templates/reports/projection.html"))

// PDFRenderer turns an HTML document into a PDF
type PDFRenderer interface {
	Render(html []byte) ([]byte, error)
}

// WkhtmlRenderer renders with the wkhtmltopdf binary found on PATH or in WKHTMLTOPDF_PATH
type WkhtmlRenderer struct{}

func (WkhtmlRenderer) Render(html []byte) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf generator: %w", err)
	}
	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html))
	page.EnableLocalFileAccess.Set(true)
	page.Encoding.Set("UTF-8")
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create pdf: %w", err)
	}
	return pdfg.Bytes(), nil
}

// ProjectionSource loads a projection the caller may see
type ProjectionSource interface {
	Get(ctx context.Context, meta RequestMeta, id uint) (*models.Projection, error)
}

// ReportService renders projection summaries as PDF and caches them per calculation
type ReportService struct {
	projections ProjectionSource
	storage     *storage.LocalStorage
	renderer    PDFRenderer
	now         func() time.Time
}

func NewReportService(projections ProjectionSource, store *storage.LocalStorage, renderer PDFRenderer) *ReportService {
	if renderer == nil {
		renderer = WkhtmlRenderer{}
	}
	return &ReportService{
		projections: projections,
		storage:     store,
		renderer:    renderer,
		now:         time.Now,
	}
}

// ProjectionPDF returns the report of a projection owned by the caller
func (s *ReportService) ProjectionPDF(ctx context.Context, meta RequestMeta, id uint) (*ExportFile, error) {
	p, err := s.projections.Get(ctx, meta, id)
	if err != nil {
		return nil, err
	}
	return s.PDF(p, meta.Locale)
}

// PDF renders the report of an already loaded projection. Reports are cached under the
// calculation timestamp, so a recalculation produces a new file.
func (s *ReportService) PDF(p *models.Projection, locale string) (*ExportFile, error) {
	if p.CalculationResults == nil {
		return nil, fmt.Errorf("%w: projeção sem cálculos", ErrInvalidState)
	}
	locale = reportLocale(locale)

	file := &ExportFile{
		Filename:    fmt.Sprintf("projecao_%d.pdf", p.ID),
		ContentType: exportContentTypes[ExportPDF],
	}

	key := s.cacheKey(p, locale)
	if s.storage != nil && s.storage.Exists(key) {
		data, err := s.storage.Read(key)
		if err == nil {
			file.Data = data
			return file, nil
		}
		logger.Warn("cached report unreadable, rendering again", "key", key, "error", err)
	}

	html, err := s.RenderHTML(p, locale)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(html)
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		if _, err := s.storage.Save(key, data); err != nil {
			logger.Warn("failed to cache report", "key", key, "error", err)
		}
	}
	file.Data = data
	return file, nil
}

func (s *ReportService) cacheKey(p *models.Projection, locale string) string {
	stamp := p.UpdatedAt
	if p.CalculatedAt != nil {
		stamp = *p.CalculatedAt
	}
	return fmt.Sprintf("reports/%d/%d_%s.pdf", p.ID, stamp.Unix(), locale)
}

// Purge drops every cached report of a projection
func (s *ReportService) Purge(projectionID uint) error {
	if s.storage == nil {
		return nil
	}
	return s.storage.DeleteDir(fmt.Sprintf("reports/%d", projectionID))
}

// Prune removes cached reports older than maxAge. Run by the worker.
func (s *ReportService) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	if s.storage == nil {
		return 0, nil
	}
	n, err := s.storage.Prune("reports", s.now().Add(-maxAge))
	if err != nil {
		return n, err
	}
	if n > 0 {
		logger.Info("old report files removed", "count", n)
	}
	return n, nil
}

type reportLine struct {
	Label string
	Value string
}

type reportYear struct {
	Year  int
	Value string
	Net   string
	Rate  string
}

type reportScenario struct {
	Label       string
	Active      bool
	FutureValue string
	NetProfit   string
	ROI         string
}

type reportView struct {
	Lang           string
	L              map[string]string
	Title          string
	ClientName     string
	PropertyName   string
	Location       string
	Scenario       string
	GeneratedAt    string
	PurchasePrice  string
	FinancedAmount string
	ROI            string
	Terms          []reportLine
	FutureSale     []reportLine
	Appreciation   []reportYear
	Rental         []reportYear
	Comparison     []reportScenario
}

var reportLabels = map[string]map[string]string{
	"pt": {
		"client": "Cliente", "property": "Imóvel", "scenario": "Cenário", "generated": "Gerado em",
		"purchase_price": "Valor de compra", "financed": "Valor financiado", "roi": "ROI",
		"terms": "Condições de pagamento", "list_price": "Valor de tabela", "discount": "Desconto",
		"down_payment": "Entrada", "delivery": "Prazo de entrega", "payments": "Parcelas",
		"correction": "Correção mensal", "post_delivery": "Correção após entrega", "months": "meses",
		"total_paid": "Total pago", "total_correction": "Correção acumulada",
		"future_sale": "Venda futura", "future_value": "Valor de venda", "sale_expenses": "Despesas de venda",
		"income_tax": "Imposto de renda", "net_profit": "Lucro líquido", "irr": "TIR anual", "irr_bound": "TIR anual (estimativa fora do intervalo)",
		"appreciation": "Valorização patrimonial", "year": "Ano", "property_value": "Valor do imóvel", "net_value": "Valor líquido",
		"rental": "Renda de aluguel", "monthly_rent": "Aluguel mensal", "net_income": "Renda líquida anual", "yield": "Rentabilidade",
		"comparison": "Comparativo de cenários",
		"disclaimer": "Valores projetados a partir de premissas de mercado. Não constituem garantia de rentabilidade.",
	},
	"en": {
		"client": "Client", "property": "Property", "scenario": "Scenario", "generated": "Generated on",
		"purchase_price": "Purchase price", "financed": "Financed amount", "roi": "ROI",
		"terms": "Payment terms", "list_price": "List price", "discount": "Discount",
		"down_payment": "Down payment", "delivery": "Delivery", "payments": "Installments",
		"correction": "Monthly correction", "post_delivery": "Post-delivery correction", "months": "months",
		"total_paid": "Total paid", "total_correction": "Accumulated correction",
		"future_sale": "Future sale", "future_value": "Sale value", "sale_expenses": "Sale expenses",
		"income_tax": "Income tax", "net_profit": "Net profit", "irr": "Annual IRR", "irr_bound": "Annual IRR (estimate, out of range)",
		"appreciation": "Asset appreciation", "year": "Year", "property_value": "Property value", "net_value": "Net value",
		"rental": "Rental income", "monthly_rent": "Monthly rent", "net_income": "Net annual income", "yield": "Yield",
		"comparison": "Scenario comparison",
		"disclaimer": "Figures are projections based on market assumptions and do not guarantee returns.",
	},
}

func reportLocale(locale string) string {
	if _, ok := reportLabels[locale]; ok {
		return locale
	}
	return "pt"
}

// RenderHTML fills the report template with the projection's stored results
func (s *ReportService) RenderHTML(p *models.Projection, locale string) ([]byte, error) {
	locale = reportLocale(locale)
	view := s.buildView(p, locale)

	var buf bytes.Buffer
	if err := projectionReport.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ReportService) buildView(p *models.Projection, locale string) reportView {
	L := reportLabels[locale]
	r := p.CalculationResults
	terms := p.Terms()
	months := func(n int) string { return strconv.Itoa(n) + " " + L["months"] }

	view := reportView{
		Lang:           map[string]string{"pt": "pt-BR", "en": "en"}[locale],
		L:              L,
		Title:          p.Title,
		ClientName:     p.Client.Name,
		PropertyName:   p.Property.Name,
		Location:       p.Property.Location(),
		Scenario:       r.Scenario.Label(locale),
		GeneratedAt:    s.now().Format("02/01/2006 15:04"),
		PurchasePrice:  FormatBRL(r.PurchasePrice),
		FinancedAmount: FormatBRL(r.FinancedAmount),
		ROI:            FormatPercent(r.ROI),
	}

	view.Terms = []reportLine{
		{L["list_price"], FormatBRL(terms.ListPrice)},
		{L["discount"], FormatBRL(terms.Discount)},
		{L["down_payment"], FormatBRL(terms.DownPayment)},
		{L["delivery"], months(terms.DeliveryMonths)},
		{L["payments"], months(terms.PaymentMonths)},
		{L["correction"], FormatPercent(terms.MonthlyCorrectionRate)},
	}
	if terms.PostDeliveryCorrectionRate > 0 {
		view.Terms = append(view.Terms, reportLine{L["post_delivery"], FormatPercent(terms.PostDeliveryCorrectionRate)})
	}
	view.Terms = append(view.Terms,
		reportLine{L["total_paid"], FormatBRL(r.LedgerTotals.TotalPaid)},
		reportLine{L["total_correction"], FormatBRL(r.LedgerTotals.TotalCorrection)},
	)

	if fs := r.FutureSale; fs != nil {
		view.FutureSale = []reportLine{
			{L["future_value"], FormatBRL(fs.FutureValue)},
			{L["sale_expenses"], FormatBRL(fs.SaleExpenses)},
			{L["income_tax"], FormatBRL(fs.IncomeTax)},
			{L["net_profit"], FormatBRL(fs.NetProfit)},
			{L["roi"], FormatPercent(fs.ROI)},
		}
		if fs.IRR != nil {
			label := L["irr"]
			if !fs.IRR.Bracketed {
				label = L["irr_bound"]
			}
			view.FutureSale = append(view.FutureSale, reportLine{label, FormatPercent(fs.IRR.Annual)})
		}
	}
	if aa := r.AssetAppreciation; aa != nil {
		for _, y := range aa.Years {
			view.Appreciation = append(view.Appreciation, reportYear{Year: y.Year, Value: FormatBRL(y.PropertyValue), Net: FormatBRL(y.NetValue)})
		}
	}
	if ry := r.RentalYield; ry != nil {
		for _, y := range ry.Years {
			view.Rental = append(view.Rental, reportYear{
				Year:  y.Year,
				Value: FormatBRL(y.MonthlyRent),
				Net:   FormatBRL(y.NetIncome),
				Rate:  FormatPercent(y.YieldRate),
			})
		}
	}
	for _, c := range r.Comparison {
		view.Comparison = append(view.Comparison, reportScenario{
			Label:       c.Scenario.Label(locale),
			Active:      c.Scenario == r.Scenario,
			FutureValue: FormatBRL(c.FutureValue),
			NetProfit:   FormatBRL(c.NetProfit),
			ROI:         FormatPercent(c.ROI),
		})
	}
	return view
}
