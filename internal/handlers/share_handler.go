package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/roimob-api/internal/middleware"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/services"
)

type ShareHandler struct {
	shareService  *services.ShareService
	reportService *services.ReportService
}

func NewShareHandler(shareService *services.ShareService, reportService *services.ReportService) *ShareHandler {
	return &ShareHandler{shareService: shareService, reportService: reportService}
}

type ShareRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type ShareEmailRequest struct {
	ShareRequest
	Message string `json:"message"`
}

// shareRequest adds the creator fingerprint used to leave their own visits out of the view count
func shareRequest(c *gin.Context, req ShareRequest) services.ShareRequest {
	return services.ShareRequest{
		Title:       req.Title,
		Description: req.Description,
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	}
}

// @Summary Share Projection
// @Description Returns the active public link of the projection, creating it when needed
// @Tags Sharing
// @Accept json
// @Produce json
// @Param id path int true "Projection ID"
// @Param request body ShareRequest false "Link texts"
// @Success 200 {object} models.PublicReportLinkResponse
// @Success 201 {object} models.PublicReportLinkResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id}/share [post]
func (h *ShareHandler) Create(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ShareRequest
	if c.Request.ContentLength > 0 {
		if err := BindNestedOrFlat(c, "share", &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
			return
		}
	}

	link, created, err := h.shareService.Share(c.Request.Context(), requestMeta(c), id, shareRequest(c, req))
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"link": link.ToResponse(h.shareService.URL(link))})
}

// @Summary Share Status
// @Description Active link of the projection and its latest visits
// @Tags Sharing
// @Produce json
// @Param id path int true "Projection ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id}/share [get]
func (h *ShareHandler) Status(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	link, logs, err := h.shareService.Status(c.Request.Context(), requestMeta(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.PublicReportAccessLog{}
	}
	c.JSON(http.StatusOK, gin.H{"link": link.ToResponse(h.shareService.URL(link)), "access_logs": logs})
}

// @Summary Revoke Share Link
// @Tags Sharing
// @Produce json
// @Param id path int true "Projection ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id}/share [delete]
func (h *ShareHandler) Revoke(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.shareService.Revoke(c.Request.Context(), requestMeta(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Link desativado", "deactivated": n})
}

// @Summary Email Share Link
// @Description Sends the public link to the projection's client
// @Tags Sharing
// @Accept json
// @Produce json
// @Param id path int true "Projection ID"
// @Param request body ShareEmailRequest false "Message for the client"
// @Success 200 {object} models.PublicReportLinkResponse
// @Failure 422 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /projections/{id}/share/email [post]
func (h *ShareHandler) Email(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ShareEmailRequest
	if c.Request.ContentLength > 0 {
		if err := BindNestedOrFlat(c, "share", &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
			return
		}
	}

	link, err := h.shareService.SendByEmail(c.Request.Context(), requestMeta(c), id, shareRequest(c, req.ShareRequest), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Link enviado ao cliente", "link": link.ToResponse(h.shareService.URL(link))})
}

// visitor reads the requester fingerprint. The report page may send what the browser
// reports about itself as query parameters.
func visitor(c *gin.Context) services.Visitor {
	return services.Visitor{
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		Browser:    c.Query("browser"),
		DeviceType: c.Query("device_type"),
		OS:         c.Query("os"),
	}
}

// @Summary Public Report
// @Description Opens a shared projection without authentication and records the visit
// @Tags Public
// @Produce json
// @Param public_id path string true "Public link ID"
// @Param browser query string false "Browser name reported by the page"
// @Param device_type query string false "desktop, mobile or tablet"
// @Param os query string false "Operating system"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 410 {object} map[string]string
// @Router /public/reports/{public_id} [get]
func (h *ShareHandler) Public(c *gin.Context) {
	report, err := h.shareService.Resolve(c.Request.Context(), c.Param("public_id"), visitor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	locale := middleware.Locale(c)
	c.JSON(http.StatusOK, gin.H{
		"projection": report.Projection.ToResponse(locale),
		"link":       report.Link.ToResponse(h.shareService.URL(report.Link)),
	})
}

// @Summary Public Report PDF
// @Description PDF of a shared projection. Downloads count as visits.
// @Tags Public
// @Produce application/pdf
// @Param public_id path string true "Public link ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Router /public/reports/{public_id}/pdf [get]
func (h *ShareHandler) PublicPDF(c *gin.Context) {
	report, err := h.shareService.Resolve(c.Request.Context(), c.Param("public_id"), visitor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := h.reportService.PDF(report.Projection, middleware.Locale(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}
