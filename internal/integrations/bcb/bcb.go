// Package bcb reads monthly economic series from the Central Bank of Brazil SGS service.
package bcb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// SGS series codes per index type
var SeriesCodes = map[string]int{
	"ipca":            433,
	"igpm":            189,
	"selic_acumulada": 1178,
	"selic_meta":      432,
	"cdi":             4392,
	"incc":            192,
}

// ErrUnknownSeries is returned for an index type without an SGS code
var ErrUnknownSeries = errors.New("bcb: unknown series")

// Observation is one monthly value of a series, in percent.
type Observation struct {
	Month string  `json:"month"` // YYYY-MM
	Value float64 `json:"value"`
}

// Client talks to the SGS JSON API and falls back to the SOAP web service.
type Client struct {
	baseURL string
	soapURL string
	client  *http.Client
	log     *logrus.Logger
	now     func() time.Time
}

// NewClient initializes a new SGS client
func NewClient(baseURL, soapURL string, timeout time.Duration, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		soapURL: soapURL,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
		now: time.Now,
	}
}

// Latest returns the last n monthly observations of indexType, oldest first.
func (c *Client) Latest(ctx context.Context, indexType string, n int) ([]Observation, error) {
	code, ok := SeriesCodes[indexType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeries, indexType)
	}
	if n < 1 {
		n = 1
	}

	obs, err := c.fetchJSON(ctx, code, n)
	if err == nil {
		return obs, nil
	}
	c.log.Warnf("SGS JSON request for series %d failed, trying SOAP: %v", code, err)

	if c.soapURL == "" {
		return nil, err
	}
	to := c.now()
	from := to.AddDate(0, -n-1, 0)
	obs, soapErr := c.fetchSOAP(ctx, code, from, to)
	if soapErr != nil {
		return nil, fmt.Errorf("bcb series %d: json: %v; soap: %w", code, err, soapErr)
	}
	if len(obs) > n {
		obs = obs[len(obs)-n:]
	}
	return obs, nil
}

func (c *Client) fetchJSON(ctx context.Context, code, n int) ([]Observation, error) {
	url := fmt.Sprintf("%s/bcdata.sgs.%d/dados/ultimos/%d?formato=json", c.baseURL, code, n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parseJSON(body)
}

type sgsPoint struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// parseJSON reads [{"data":"01/02/2024","valor":"0.83"}, ...]
func parseJSON(body []byte) ([]Observation, error) {
	var points []sgsPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if len(points) == 0 {
		return nil, errors.New("no observations in response")
	}

	out := make([]Observation, 0, len(points))
	for _, p := range points {
		obs, err := newObservation(p.Data, p.Valor)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return collapse(out), nil
}

// buildSOAPRequest creates a getValoresSeriesXML request for one series
func buildSOAPRequest(code int, from, to time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:pub="http://publico.ws.casosdeuso.sgs.pec.bcb.gov.br">
	<soapenv:Body>
		<pub:getValoresSeriesXML>
			<codigosSeries><item>%d</item></codigosSeries>
			<dataInicio>%s</dataInicio>
			<dataFim>%s</dataFim>
		</pub:getValoresSeriesXML>
	</soapenv:Body>
</soapenv:Envelope>`, code, from.Format("02/01/2006"), to.Format("02/01/2006"))
}

func (c *Client) fetchSOAP(ctx context.Context, code int, from, to time.Time) ([]Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.soapURL, bytes.NewBufferString(buildSOAPRequest(code, from, to)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "getValoresSeriesXML")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parseSOAPResponse(body)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("SGS response from %s: %d bytes", req.URL.Host, len(body))
	return body, nil
}

// parseSOAPResponse unwraps the envelope, whose return element carries the series XML as text.
func parseSOAPResponse(raw []byte) ([]Observation, error) {
	doc := newDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	if fault := doc.FindElement("//Fault/faultstring"); fault != nil {
		return nil, fmt.Errorf("soap fault: %s", strings.TrimSpace(fault.Text()))
	}

	ret := doc.FindElement("//getValoresSeriesXMLReturn")
	if ret == nil {
		return parseSeriesXML(doc)
	}

	inner := newDocument()
	if err := inner.ReadFromString(ret.Text()); err != nil {
		return nil, fmt.Errorf("failed to parse series XML: %w", err)
	}
	return parseSeriesXML(inner)
}

// newDocument accepts the ISO-8859-1 declaration SGS sends; the payload itself is ASCII.
func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return doc
}

// parseSeriesXML reads <SERIES><SERIE><ITEM><DATA>2/2024</DATA><VALOR>0,83</VALOR></ITEM>...
func parseSeriesXML(doc *etree.Document) ([]Observation, error) {
	items := doc.FindElements("//SERIE/ITEM")
	if len(items) == 0 {
		return nil, errors.New("no series items found in XML")
	}

	out := make([]Observation, 0, len(items))
	for _, item := range items {
		data := item.FindElement("./DATA")
		valor := item.FindElement("./VALOR")
		if data == nil || valor == nil {
			continue
		}
		obs, err := newObservation(data.Text(), valor.Text())
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	if len(out) == 0 {
		return nil, errors.New("no series items found in XML")
	}
	return collapse(out), nil
}

func newObservation(date, value string) (Observation, error) {
	month, err := MonthKey(date)
	if err != nil {
		return Observation{}, err
	}
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(value), ",", ".", 1), 64)
	if err != nil {
		return Observation{}, fmt.Errorf("invalid value %q: %w", value, err)
	}
	return Observation{Month: month, Value: v}, nil
}

// MonthKey converts "DD/MM/YYYY" or "MM/YYYY" to "YYYY-MM".
func MonthKey(date string) (string, error) {
	parts := strings.Split(strings.TrimSpace(date), "/")
	var mm, yyyy string
	switch len(parts) {
	case 3:
		mm, yyyy = parts[1], parts[2]
	case 2:
		mm, yyyy = parts[0], parts[1]
	default:
		return "", fmt.Errorf("invalid date %q", date)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 1 || m > 12 {
		return "", fmt.Errorf("invalid month in %q", date)
	}
	y, err := strconv.Atoi(yyyy)
	if err != nil || y < 1900 {
		return "", fmt.Errorf("invalid year in %q", date)
	}
	return fmt.Sprintf("%04d-%02d", y, m), nil
}

// collapse sorts by month and keeps the last value seen for each month.
// Daily series such as CDI report several points per month.
func collapse(obs []Observation) []Observation {
	byMonth := make(map[string]float64, len(obs))
	for _, o := range obs {
		byMonth[o.Month] = o.Value
	}
	out := make([]Observation, 0, len(byMonth))
	for m, v := range byMonth {
		out = append(out, Observation{Month: m, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
