package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/roimob-api/internal/middleware"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/internal/services"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

// errorStatus maps service and engine errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrLinkUnavailable):
		return http.StatusGone
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrExpiredToken),
		errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrInactiveAccount):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrNotEditable),
		errors.Is(err, services.ErrDuplicate),
		errors.Is(err, services.ErrInUse):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidIndexType),
		errors.Is(err, services.ErrNoRecipient),
		projection.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrEmailDisabled),
		errors.Is(err, services.ErrCollectionDisabled),
		errors.Is(err, services.ErrNoIndexData):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes the error body. Internal errors are logged and their text is hidden.
func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "Erro interno, tente novamente"})
		return
	}

	body := gin.H{"error": err.Error()}
	var over *projection.OvercommitError
	if errors.As(err, &over) {
		body["details"] = gin.H{"purchase_price": over.PurchasePrice, "total": over.Total, "excess": over.Excess}
	}
	var mismatch *projection.CustomPlanMismatchError
	if errors.As(err, &mismatch) {
		body["details"] = gin.H{
			"expected":  mismatch.Expected,
			"actual":    mismatch.Actual,
			"shortfall": mismatch.Shortfall(),
			"excess":    mismatch.Excess(),
		}
	}
	c.JSON(status, body)
}

// requestMeta collects the caller details passed to services
func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		UserID:    middleware.GetUserID(c),
		IsAdmin:   middleware.IsAdmin(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Locale:    middleware.Locale(c),
	}
}

// paramID reads a numeric path parameter, answering 400 when it is not one
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return 0, false
	}
	return uint(id), true
}

// listQuery reads the paging, search and sort parameters shared by list endpoints
func listQuery(c *gin.Context, defaultPerPage int) *repository.ListQuery {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PerPage < 1 || query.PerPage > 100 {
		query.PerPage = defaultPerPage
	}
	query.Search = c.Query("search_term")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.Query("sort_direction")
	return query
}

// pagination renders the list envelope used by every index endpoint
func pagination(page, perPage int, total int64) gin.H {
	pages := int64(0)
	if perPage > 0 {
		pages = (total + int64(perPage) - 1) / int64(perPage)
	}
	return gin.H{"page": page, "per_page": perPage, "total": total, "pages": pages}
}

// sendFile streams a generated file as an attachment
func sendFile(c *gin.Context, file *services.ExportFile) {
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
