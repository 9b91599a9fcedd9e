package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/roimob-api/internal/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// @Summary Dashboard Statistics
// @Description Counts, average ROI and IRR, strategy usage and the latest projections of the current broker. Admins see every broker.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} services.DashboardStats
// @Security BearerAuth
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboardService.Stats(c.Request.Context(), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Admin Statistics
// @Description Platform-wide user, projection and shared-link counts
// @Tags Admin
// @Produce json
// @Success 200 {object} services.AdminStats
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *DashboardHandler) AdminStats(c *gin.Context) {
	stats, err := h.dashboardService.AdminStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
