package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/services"
)

type IndexHandler struct {
	indexService *services.IndexService
}

func NewIndexHandler(indexService *services.IndexService) *IndexHandler {
	return &IndexHandler{indexService: indexService}
}

// @Summary Index Series
// @Description Monthly readings of an economic index between two months (default: last twelve months)
// @Tags Indexes
// @Produce json
// @Param type query string true "ipca, igpm, incc, cdi, selic_meta or selic_acumulada"
// @Param from query string false "First month, YYYY-MM"
// @Param to query string false "Last month, YYYY-MM"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /indexes [get]
func (h *IndexHandler) Index(c *gin.Context) {
	indexType := c.Query("type")
	if indexType == "" {
		c.JSON(http.StatusOK, gin.H{"index_types": models.IndexTypes})
		return
	}

	rows, err := h.indexService.Series(c.Request.Context(), indexType, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []models.FinancialIndex{}
	}
	c.JSON(http.StatusOK, gin.H{"index_type": indexType, "indexes": rows})
}

// @Summary Index Summary
// @Description Latest reading, twelve month average and equivalent rates of every index
// @Tags Indexes
// @Produce json
// @Success 200 {array} services.IndexSummary
// @Security BearerAuth
// @Router /indexes/summary [get]
func (h *IndexHandler) Summary(c *gin.Context) {
	summary, err := h.indexService.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexes": summary})
}

// @Summary Index Detail
// @Description One index with its last twelve months and the suggested monthly correction rate
// @Tags Indexes
// @Produce json
// @Param type path string true "Index type"
// @Success 200 {object} services.IndexSummary
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /indexes/{type} [get]
func (h *IndexHandler) Show(c *gin.Context) {
	detail, err := h.indexService.Detail(c.Request.Context(), c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": detail, "suggested_monthly_rate": detail.MonthlyRate})
}

type CollectRequest struct {
	Points int `json:"points"`
}

// @Summary Collect Indexes
// @Description Fetches the latest points of every index from the Central Bank now
// @Tags Indexes
// @Accept json
// @Produce json
// @Param request body CollectRequest false "Points per series (default: refresh window)"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /indexes/collect [post]
func (h *IndexHandler) Collect(c *gin.Context) {
	var req CollectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
			return
		}
	}

	results, err := h.indexService.CollectNow(c.Request.Context(), requestMeta(c), req.Points)
	if err != nil && results == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "results": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
