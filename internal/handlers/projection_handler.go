package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/roimob-api/internal/middleware"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/internal/services"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

type ProjectionHandler struct {
	projectionService *services.ProjectionService
	exportService     *services.ExportService
	reportService     *services.ReportService
}

func NewProjectionHandler(projectionSvc *services.ProjectionService, exportSvc *services.ExportService, reportSvc *services.ReportService) *ProjectionHandler {
	return &ProjectionHandler{
		projectionService: projectionSvc,
		exportService:     exportSvc,
		reportService:     reportSvc,
	}
}

// @Summary Preview Projection
// @Description Runs the scenario engine on the submitted terms without saving anything
// @Tags Projections
// @Accept json
// @Produce json
// @Param request body services.ProjectionInput true "Projection input"
// @Success 200 {object} projection.CalculationResults
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /projections/preview [post]
func (h *ProjectionHandler) Preview(c *gin.Context) {
	in, ok := bindNewProjection(c)
	if !ok {
		return
	}

	results, err := h.projectionService.Preview(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"calculation_results": results,
		"scenario_label":      results.Scenario.Label(middleware.Locale(c)),
	})
}

// @Summary Create Projection
// @Description Calculates and stores a new draft projection
// @Tags Projections
// @Accept json
// @Produce json
// @Param request body services.ProjectionInput true "Projection input"
// @Success 201 {object} models.ProjectionResponse
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /projections [post]
func (h *ProjectionHandler) Create(c *gin.Context) {
	in, ok := bindNewProjection(c)
	if !ok {
		return
	}

	meta := requestMeta(c)
	p, err := h.projectionService.Create(c.Request.Context(), meta, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"projection": p.ToResponse(meta.Locale)})
}

// @Summary List Projections
// @Description Paginated projections of the current broker; admins see all
// @Tags Projections
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search in title, client and property"
// @Param status query string false "draft, published or archived"
// @Param client_id query int false "Client ID"
// @Param property_id query int false "Property ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /projections [get]
func (h *ProjectionHandler) Index(c *gin.Context) {
	query := &repository.ProjectionQuery{ListQuery: listQuery(c, 20)}
	query.Status = c.Query("status")
	if id, err := strconv.ParseUint(c.Query("client_id"), 10, 32); err == nil {
		query.ClientID = uint(id)
	}
	if id, err := strconv.ParseUint(c.Query("property_id"), 10, 32); err == nil {
		query.PropertyID = uint(id)
	}

	meta := requestMeta(c)
	items, total, err := h.projectionService.List(c.Request.Context(), meta, query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.ProjectionResponse, 0, len(items))
	for i := range items {
		responses = append(responses, items[i].ToResponse(meta.Locale))
	}
	c.JSON(http.StatusOK, gin.H{"projections": responses, "pagination": pagination(query.Page, query.PerPage, total)})
}

// @Summary Get Projection
// @Tags Projections
// @Produce json
// @Param id path int true "Projection ID"
// @Success 200 {object} models.ProjectionResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id} [get]
func (h *ProjectionHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	meta := requestMeta(c)
	p, err := h.projectionService.Get(c.Request.Context(), meta, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projection": p.ToResponse(meta.Locale)})
}

// @Summary Update Projection
// @Description Merges the sent fields over the stored input, recalculates and replaces the projection
// @Tags Projections
// @Accept json
// @Produce json
// @Param id path int true "Projection ID"
// @Param request body services.ProjectionInput true "Fields to change"
// @Success 200 {object} models.ProjectionResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /projections/{id} [patch]
func (h *ProjectionHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	meta := requestMeta(c)
	current, err := h.projectionService.Get(c.Request.Context(), meta, id)
	if err != nil {
		respondError(c, err)
		return
	}

	// Absent fields keep their stored values
	in := services.InputFromProjection(current)
	if !bindProjection(c, &in) {
		return
	}

	p, err := h.projectionService.Update(c.Request.Context(), meta, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projection": p.ToResponse(meta.Locale)})
}

// @Summary Delete Projection
// @Description Deletes the projection with its ledger, share links and cached reports
// @Tags Projections
// @Produce json
// @Param id path int true "Projection ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id} [delete]
func (h *ProjectionHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.projectionService.Delete(c.Request.Context(), requestMeta(c), id); err != nil {
		respondError(c, err)
		return
	}
	if err := h.reportService.Purge(id); err != nil {
		logger.Warn("failed to purge cached reports", "projection_id", id, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Projeção excluída"})
}

// @Summary Delete Calculations
// @Description Removes the stored ledger rows of a projection
// @Tags Projections
// @Produce json
// @Param id path int true "Projection ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /projections/{id}/calculations [delete]
func (h *ProjectionHandler) DeleteCalculations(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.projectionService.DeleteCalculations(c.Request.Context(), requestMeta(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cálculos excluídos", "deleted": deleted})
}

// @Summary Recalculate Projection
// @Description Re-runs the engine on the stored input. With async=true the work is queued.
// @Tags Projections
// @Produce json
// @Param id path int true "Projection ID"
// @Param async query bool false "Queue on the background worker"
// @Success 200 {object} models.ProjectionResponse
// @Success 202 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id}/recalculate [post]
func (h *ProjectionHandler) Recalculate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	meta := requestMeta(c)

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if err := h.projectionService.RecalculateAsync(c.Request.Context(), meta, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Recálculo agendado"})
		return
	}

	p, err := h.projectionService.Recalculate(c.Request.Context(), meta, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projection": p.ToResponse(meta.Locale)})
}

// @Summary Publish Projection
// @Tags Projections
// @Produce json
// @Param id path int true "Projection ID"
// @Success 200 {object} models.ProjectionResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id}/publish [post]
func (h *ProjectionHandler) Publish(c *gin.Context) {
	h.transition(c, h.projectionService.Publish)
}

// @Summary Archive Projection
// @Tags Projections
// @Produce json
// @Param id path int true "Projection ID"
// @Success 200 {object} models.ProjectionResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id}/archive [post]
func (h *ProjectionHandler) Archive(c *gin.Context) {
	h.transition(c, h.projectionService.Archive)
}

// @Summary Restore Projection
// @Tags Projections
// @Produce json
// @Param id path int true "Projection ID"
// @Success 200 {object} models.ProjectionResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id}/restore [post]
func (h *ProjectionHandler) Restore(c *gin.Context) {
	h.transition(c, h.projectionService.Restore)
}

type transitionFunc func(ctx context.Context, meta services.RequestMeta, id uint) (*models.Projection, error)

func (h *ProjectionHandler) transition(c *gin.Context, fire transitionFunc) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	meta := requestMeta(c)
	p, err := fire(c.Request.Context(), meta, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projection": p.ToResponse(meta.Locale)})
}

// @Summary Projection Ledger
// @Description Month-by-month cash flow of a scenario as JSON or as a csv, xlsx or pdf download
// @Tags Projections
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Projection ID"
// @Param scenario query string false "standard|padrao, conservative|conservador, optimistic|otimista"
// @Param format query string false "json (default), csv, xlsx or pdf"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /projections/{id}/ledger [get]
func (h *ProjectionHandler) Ledger(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var sc projection.Scenario
	if raw := strings.TrimSpace(c.Query("scenario")); raw != "" {
		parsed, err := projection.ParseScenario(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		sc = parsed
	}

	meta := requestMeta(c)
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" {
		file, err := h.exportService.Export(c.Request.Context(), meta, id, sc, format)
		if err != nil {
			respondError(c, err)
			return
		}
		sendFile(c, file)
		return
	}

	p, rows, err := h.projectionService.Ledger(c.Request.Context(), meta, id, sc)
	if err != nil {
		respondError(c, err)
		return
	}
	if sc == "" {
		sc = p.ActiveScenario
		if p.CalculationResults != nil {
			sc = p.CalculationResults.Scenario
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"projection_id":  p.ID,
		"scenario":       sc,
		"scenario_label": sc.Label(meta.Locale),
		"ledger":         rows,
		"totals":         projection.Totals(rows),
	})
}

// @Summary Projection Report
// @Description Summary report of the projection as PDF, or as HTML with format=html
// @Tags Projections
// @Produce application/pdf
// @Produce text/html
// @Param id path int true "Projection ID"
// @Param format query string false "pdf (default) or html"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /projections/{id}/report [get]
func (h *ProjectionHandler) Report(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	meta := requestMeta(c)

	if strings.EqualFold(c.Query("format"), "html") {
		p, err := h.projectionService.Get(c.Request.Context(), meta, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if p.CalculationResults == nil {
			respondError(c, services.ErrInvalidState)
			return
		}
		html, err := h.reportService.RenderHTML(p, meta.Locale)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)
		return
	}

	file, err := h.reportService.ProjectionPDF(c.Request.Context(), meta, id)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}

// bindProjection decodes the body over in. Malformed JSON answers 400, unknown
// scenario keys and repeated aliases answer 422.
func bindProjection(c *gin.Context, in *services.ProjectionInput) bool {
	err := BindNestedOrFlat(c, "projection", in)
	if err == nil {
		return true
	}
	if errorStatus(err) == http.StatusUnprocessableEntity {
		respondError(c, err)
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
	return false
}

// bindNewProjection reads the delivery horizon first, then decodes again over the
// default scenarios for it so a scenario sent with a few fields keeps the other defaults.
func bindNewProjection(c *gin.Context) (services.ProjectionInput, bool) {
	var horizon struct {
		Terms struct {
			DeliveryMonths int `json:"delivery_months"`
		} `json:"terms"`
	}
	_ = BindNestedOrFlat(c, "projection", &horizon)

	in := services.ProjectionInput{Scenarios: services.DefaultScenarioInputs(horizon.Terms.DeliveryMonths)}
	return in, bindProjection(c, &in)
}
