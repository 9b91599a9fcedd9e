package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Stats returns the current worker status
// @Summary Get background job status
// @Description Worker counters (active, completed, failed, queue length) and the cron schedule
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.JobStatus
// @Router /jobs/stats [get]
func (h *JobHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobService.GetStatus())
}

// @Summary Trigger scheduled job
// @Description Queues a scheduled job (e.g. index_history, index_refresh) to run now
// @Tags Jobs
// @Produce json
// @Param name path string true "Job name"
// @Success 202 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /jobs/{name}/trigger [post]
func (h *JobHandler) Trigger(c *gin.Context) {
	name := c.Param("name")
	if !h.jobService.Trigger(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tarefa não encontrada"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Tarefa enfileirada", "job": name})
}

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Logs
// @Description Get a paginated list of audit logs
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param entity query string false "Projection, Client, Property, PublicReportLink or FinancialIndex"
// @Param action query string false "Action"
// @Param user_id query int false "User ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query := listQuery(c, 50)
	query.Filters["entity"] = c.Query("entity")
	query.Filters["action"] = c.Query("action")
	if _, err := strconv.ParseUint(c.Query("user_id"), 10, 32); err == nil {
		query.Filters["user_id"] = c.Query("user_id")
	}

	logs, total, err := h.auditService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.AuditLogResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, logs[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"audits": responses, "pagination": pagination(query.Page, query.PerPage, total)})
}
