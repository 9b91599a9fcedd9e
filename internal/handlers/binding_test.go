package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type clientPayload struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
	Terms struct {
		ListPrice     float64 `json:"list_price"`
		PaymentMonths int     `json:"payment_months"`
	} `json:"terms"`
}

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		key         string
		body        string
		wantName    string
		wantPrice   float64
		expectError bool
	}{
		{name: "nested", key: "client", body: `{"client": {"name": "Ana Souza"}}`, wantName: "Ana Souza"},
		{name: "flat", key: "client", body: `{"name": "Bruno Lima"}`, wantName: "Bruno Lima"},
		{name: "other keys fall back to flat", key: "client", body: `{"other": 1, "name": "Carla"}`, wantName: "Carla"},
		{name: "nested projection terms", key: "projection", body: `{"projection": {"terms": {"list_price": 300000}}}`, wantPrice: 300000},
		{name: "wrong type", key: "client", body: `{"name": 12}`, expectError: true},
		{name: "nested wrong type", key: "client", body: `{"client": {"terms": "x"}}`, expectError: true},
		{name: "nested key is not an object", key: "client", body: `{"client": "Ana"}`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result clientPayload
			err := BindNestedOrFlat(c, tt.key, &result)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantName, result.Name)
			assert.Equal(t, tt.wantPrice, result.Terms.ListPrice)
		})
	}
}

func TestBindNestedOrFlat_MergesOverExistingValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("PATCH", "/", bytes.NewBufferString(`{"projection": {"terms": {"payment_months": 48}}}`))

	phone := "11 99999-0000"
	current := clientPayload{Name: "Ana Souza", Phone: &phone}
	current.Terms.ListPrice = 300000
	current.Terms.PaymentMonths = 36

	assert.NoError(t, BindNestedOrFlat(c, "projection", &current))
	assert.Equal(t, "Ana Souza", current.Name)
	assert.Equal(t, &phone, current.Phone)
	assert.Equal(t, 300000.0, current.Terms.ListPrice)
	assert.Equal(t, 48, current.Terms.PaymentMonths)
}
