package bcb

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

const seriesXML = `<?xml version="1.0" encoding="ISO-8859-1"?>
<SERIES><SERIE ID="433">
<ITEM><DATA>12/2023</DATA><VALOR>0,56</VALOR></ITEM>
<ITEM><DATA>1/2024</DATA><VALOR>0,42</VALOR></ITEM>
<ITEM><DATA>2/2024</DATA><VALOR>0,83</VALOR></ITEM>
</SERIE></SERIES>`

func soapEnvelope(inner string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
<soapenv:Body>
<ns1:getValoresSeriesXMLResponse xmlns:ns1="http://publico.ws.casosdeuso.sgs.pec.bcb.gov.br">
<getValoresSeriesXMLReturn>` + html.EscapeString(inner) + `</getValoresSeriesXMLReturn>
</ns1:getValoresSeriesXMLResponse>
</soapenv:Body>
</soapenv:Envelope>`
}

func TestClient_LatestJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bcdata.sgs.433/dados/ultimos/2", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("formato"))
		w.Write([]byte(`[{"data":"01/01/2024","valor":"0.42"},{"data":"01/02/2024","valor":"0.83"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, quietLogger())
	obs, err := c.Latest(context.Background(), "ipca", 2)
	require.NoError(t, err)
	assert.Equal(t, []Observation{{Month: "2024-01", Value: 0.42}, {Month: "2024-02", Value: 0.83}}, obs)
}

func TestClient_FallsBackToSOAP(t *testing.T) {
	jsonSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer jsonSrv.Close()

	soapSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<item>433</item>")
		assert.Equal(t, "getValoresSeriesXML", r.Header.Get("SOAPAction"))
		w.Write([]byte(soapEnvelope(seriesXML)))
	}))
	defer soapSrv.Close()

	c := NewClient(jsonSrv.URL, soapSrv.URL, time.Second, quietLogger())
	c.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

	obs, err := c.Latest(context.Background(), "ipca", 2)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "2024-01", obs[0].Month)
	assert.InDelta(t, 0.83, obs[1].Value, 1e-9)
}

func TestClient_BothSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, time.Second, quietLogger())
	_, err := c.Latest(context.Background(), "igpm", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bcb series 189")
}

func TestClient_UnknownSeries(t *testing.T) {
	c := NewClient("http://unused", "", time.Second, quietLogger())
	_, err := c.Latest(context.Background(), "poupanca", 1)
	assert.ErrorIs(t, err, ErrUnknownSeries)
}

func TestParseSOAPResponse_Fault(t *testing.T) {
	fault := `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body>
<soapenv:Fault><faultcode>soapenv:Server</faultcode><faultstring>Value(s) not found</faultstring></soapenv:Fault>
</soapenv:Body></soapenv:Envelope>`
	_, err := parseSOAPResponse([]byte(fault))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Value(s) not found")
}

func TestParseJSON_CollapsesDailyPoints(t *testing.T) {
	body := `[{"data":"02/01/2024","valor":"0.043"},{"data":"31/01/2024","valor":"0.045"},{"data":"01/02/2024","valor":"0.041"}]`
	obs, err := parseJSON([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, []Observation{{Month: "2024-01", Value: 0.045}, {Month: "2024-02", Value: 0.041}}, obs)
}

func TestMonthKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"01/02/2024", "2024-02", false},
		{"2/2024", "2024-02", false},
		{"12/2023", "2023-12", false},
		{"13/2024", "", true},
		{"2024-02", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := MonthKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSOAPRequest(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	req := buildSOAPRequest(4392, from, to)
	assert.True(t, strings.Contains(req, "<dataInicio>01/01/2024</dataInicio>"))
	assert.True(t, strings.Contains(req, "<dataFim>31/03/2024</dataFim>"))
}
