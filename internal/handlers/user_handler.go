package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/roimob-api/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// @Summary Update Profile
// @Description Changes the name, e-mail, phone or language of the current broker
// @Tags Users
// @Accept json
// @Produce json
// @Param request body services.ProfileInput true "Profile fields"
// @Success 200 {object} models.UserResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /users/profile [patch]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var in services.ProfileInput
	if err := BindNestedOrFlat(c, "user", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), requestMeta(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.ToResponse(), "message": "Perfil atualizado"})
}

type UpdateCompanyRequest struct {
	Company *string `json:"company"`
}

// @Summary Update Company
// @Description Sets the company printed on the broker's reports. An empty value clears it.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body UpdateCompanyRequest true "Company"
// @Success 200 {object} models.UserResponse
// @Security BearerAuth
// @Router /users/company [patch]
func (h *UserHandler) UpdateCompany(c *gin.Context) {
	var req UpdateCompanyRequest
	if err := BindNestedOrFlat(c, "user", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
		return
	}
	user, err := h.userService.UpdateCompany(c.Request.Context(), requestMeta(c), req.Company)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.ToResponse(), "message": "Empresa atualizada"})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// @Summary Change Password
// @Description Changes the current broker's password and ends the other sessions
// @Tags Users
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /users/password [patch]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := BindNestedOrFlat(c, "user", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), requestMeta(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Senha alterada com sucesso"})
}

// @Summary List Users
// @Description Paginated accounts with their projection counts
// @Tags Admin
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by name or e-mail"
// @Param role query string false "admin or broker"
// @Param status query string false "active, inactive or suspended"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) Index(c *gin.Context) {
	query := listQuery(c, 20)
	query.Filters["role"] = c.Query("role")
	query.Filters["status"] = c.Query("status")

	users, total, err := h.userService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "pagination": pagination(query.Page, query.PerPage, total)})
}

// @Summary Get User
// @Tags Admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *UserHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.ToResponse()})
}

// @Summary Create User
// @Description Opens an account. Without a password a temporary one is generated and e-mailed.
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body services.AdminUserInput true "Account data"
// @Success 201 {object} models.UserResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var in services.AdminUserInput
	if err := BindNestedOrFlat(c, "user", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
		return
	}
	user, err := h.userService.Create(c.Request.Context(), requestMeta(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user.ToResponse(), "message": "Usuário criado com sucesso"})
}

// @Summary Update User
// @Description Edits name, e-mail, company, phone, role, status or language
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body services.AdminUserInput true "Fields to change"
// @Success 200 {object} models.UserResponse
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users/{id} [patch]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.AdminUserInput
	if err := BindNestedOrFlat(c, "user", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
		return
	}
	user, err := h.userService.Update(c.Request.Context(), requestMeta(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.ToResponse(), "message": "Usuário atualizado com sucesso"})
}

// @Summary Delete User
// @Description Discards the account and revokes its sessions
// @Tags Admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), requestMeta(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usuário excluído com sucesso"})
}

// ResetPasswordRequest accepts user_id or userId. new_password is optional.
type ResetPasswordRequest struct {
	UserID      uint   `json:"user_id"`
	UserIDCamel uint   `json:"userId"`
	NewPassword string `json:"new_password"`
}

// @Summary Reset User Password
// @Description Sets a new password for an account and e-mails it. Without new_password a temporary one is generated.
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Target account"
// @Success 200 {object} services.PasswordReset
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admin/reset-user-password [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := BindNestedOrFlat(c, "user", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
		return
	}
	if req.UserID == 0 {
		req.UserID = req.UserIDCamel
	}
	if req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id é obrigatório"})
		return
	}

	result, err := h.userService.ResetPassword(c.Request.Context(), requestMeta(c), req.UserID, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "message": "Senha redefinida com sucesso"})
}
