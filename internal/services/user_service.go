package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sjperalta/roimob-api/internal/jobs"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

const minPasswordLength = 6

// UserService manages broker accounts: self-registration, profile edits and admin upkeep
type UserService struct {
	repo          repository.UserRepository
	refreshTokens repository.RefreshTokenRepository
	dashboard     repository.DashboardRepository
	worker        *jobs.Worker
	emailService  *EmailService
	auditSvc      *AuditService
}

func NewUserService(
	repo repository.UserRepository,
	refreshTokens repository.RefreshTokenRepository,
	dashboard repository.DashboardRepository,
	worker *jobs.Worker,
	emailService *EmailService,
	auditSvc *AuditService,
) *UserService {
	return &UserService{
		repo:          repo,
		refreshTokens: refreshTokens,
		dashboard:     dashboard,
		worker:        worker,
		emailService:  emailService,
		auditSvc:      auditSvc,
	}
}

// RegisterInput is the self-service sign-up form
type RegisterInput struct {
	FullName string  `json:"full_name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Company  *string `json:"company"`
	Phone    string  `json:"phone"`
}

// Register creates a broker account. The welcome email goes out in the background.
func (s *UserService) Register(ctx context.Context, meta RequestMeta, in RegisterInput) (*models.User, error) {
	user := &models.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    normalizeEmail(in.Email),
		Company:  trimmedOrNil(in.Company),
		Phone:    strings.TrimSpace(in.Phone),
		Role:     models.RoleBroker,
	}
	if err := s.create(ctx, user, in.Password); err != nil {
		return nil, err
	}

	meta.UserID = user.ID
	s.auditSvc.Log(ctx, meta, models.AuditRegister, models.EntityUser, user.ID,
		fmt.Sprintf("Cadastro: %s (%s)", user.FullName, user.Email))
	s.sendWelcome(user, "")
	return user, nil
}

// AdminUserInput is what an admin sends to create or edit an account.
// Nil fields are left untouched on edit.
type AdminUserInput struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Company  *string `json:"company"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
	Locale   *string `json:"locale"`
}

// Create opens an account on behalf of a broker. Without a password a temporary one is
// generated and mailed with the welcome message.
func (s *UserService) Create(ctx context.Context, meta RequestMeta, in AdminUserInput) (*models.User, error) {
	user := &models.User{Role: models.RoleBroker}
	if in.FullName == nil || in.Email == nil {
		return nil, fmt.Errorf("%w: nome e e-mail são obrigatórios", ErrInvalidInput)
	}
	password, generated := "", false
	if in.Password != nil && *in.Password != "" {
		password = *in.Password
	} else {
		var err error
		if password, err = GenerateTempPassword(); err != nil {
			return nil, fmt.Errorf("failed to generate password: %w", err)
		}
		generated = true
	}
	if err := applyAdminInput(user, in); err != nil {
		return nil, err
	}
	if err := s.create(ctx, user, password); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, meta, models.AuditCreate, models.EntityUser, user.ID,
		fmt.Sprintf("Usuário criado: %s (%s) - Perfil: %s", user.FullName, user.Email, user.Role))
	if generated {
		s.sendWelcome(user, password)
	} else {
		s.sendWelcome(user, "")
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, user *models.User, password string) error {
	if user.FullName == "" {
		return fmt.Errorf("%w: nome é obrigatório", ErrInvalidInput)
	}
	if err := validateEmail(user.Email); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: senha deve ter pelo menos %d caracteres", ErrInvalidInput, minPasswordLength)
	}
	if existing, err := s.repo.FindByEmail(ctx, user.Email); err == nil && existing != nil {
		return fmt.Errorf("%w: já existe um usuário com este e-mail", ErrDuplicate)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.EncryptedPassword = hashed
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return fmt.Errorf("%w: já existe um usuário com este e-mail", ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *UserService) sendWelcome(user *models.User, tempPassword string) {
	s.worker.EnqueueAsync("welcome_email", func(ctx context.Context) error {
		return s.emailService.SendWelcome(ctx, user, tempPassword)
	})
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// UserListItem is one row of the admin user list
type UserListItem struct {
	models.UserResponse
	ProjectionCount int64 `json:"projection_count"`
}

// List returns accounts with how many projections each one owns
func (s *UserService) List(ctx context.Context, query *repository.ListQuery) ([]UserListItem, int64, error) {
	users, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint, 0, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
	}
	counts, err := s.dashboard.ProjectionCountsByUser(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]UserListItem, 0, len(users))
	for i := range users {
		items = append(items, UserListItem{UserResponse: users[i].ToResponse(), ProjectionCount: counts[users[i].ID]})
	}
	return items, total, nil
}

// ProfileInput is what brokers may change on their own account
type ProfileInput struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Locale   *string `json:"locale"`
}

// UpdateProfile edits the caller's own name, e-mail, phone and language
func (s *UserService) UpdateProfile(ctx context.Context, meta RequestMeta, in ProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, meta.UserID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
		if user.FullName == "" {
			return nil, fmt.Errorf("%w: nome é obrigatório", ErrInvalidInput)
		}
	}
	if in.Email != nil {
		if err := s.changeEmail(ctx, user, *in.Email); err != nil {
			return nil, err
		}
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Locale != nil {
		locale, err := parseLocale(*in.Locale)
		if err != nil {
			return nil, err
		}
		user.Locale = locale
	}
	return s.save(ctx, meta, user, "Perfil atualizado")
}

// UpdateCompany sets or clears the company shown on the broker's reports
func (s *UserService) UpdateCompany(ctx context.Context, meta RequestMeta, company *string) (*models.User, error) {
	user, err := s.Get(ctx, meta.UserID)
	if err != nil {
		return nil, err
	}
	user.Company = trimmedOrNil(company)
	return s.save(ctx, meta, user, "Empresa atualizada")
}

// ChangePassword replaces the caller's password and closes every other session
func (s *UserService) ChangePassword(ctx context.Context, meta RequestMeta, current, next string) error {
	if current == "" || next == "" {
		return fmt.Errorf("%w: senha atual e nova senha são obrigatórias", ErrInvalidInput)
	}
	user, err := s.Get(ctx, meta.UserID)
	if err != nil {
		return err
	}
	if !VerifyPassword(current, user.EncryptedPassword) {
		return fmt.Errorf("%w: senha atual incorreta", ErrInvalidInput)
	}
	if err := s.setPassword(ctx, user, next); err != nil {
		return err
	}
	s.auditSvc.Log(ctx, meta, models.AuditPassword, models.EntityUser, user.ID, "Senha alterada pelo usuário")
	return nil
}

// Update applies an admin edit. Admins cannot demote or deactivate themselves.
func (s *UserService) Update(ctx context.Context, meta RequestMeta, id uint, in AdminUserInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if id == meta.UserID {
		if in.Role != nil && *in.Role != models.RoleAdmin {
			return nil, fmt.Errorf("%w: não é possível remover o próprio perfil de administrador", ErrForbidden)
		}
		if in.Status != nil && *in.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: não é possível desativar a própria conta", ErrForbidden)
		}
	}

	if in.Email != nil {
		if err := s.changeEmail(ctx, user, *in.Email); err != nil {
			return nil, err
		}
		in.Email = nil
	}
	in.Password = nil
	if err := applyAdminInput(user, in); err != nil {
		return nil, err
	}

	saved, err := s.save(ctx, meta, user, fmt.Sprintf("Usuário atualizado: %s", user.Email))
	if err != nil {
		return nil, err
	}
	if !saved.IsActive() {
		s.revokeSessions(ctx, saved.ID)
	}
	return saved, nil
}

// Delete discards the account and its sessions. Projections stay for the audit trail.
func (s *UserService) Delete(ctx context.Context, meta RequestMeta, id uint) error {
	if id == meta.UserID {
		return fmt.Errorf("%w: não é possível excluir a própria conta", ErrForbidden)
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.revokeSessions(ctx, id)
	s.auditSvc.Log(ctx, meta, models.AuditDelete, models.EntityUser, id,
		fmt.Sprintf("Usuário excluído: %s", user.Email))
	return nil
}

// PasswordReset reports the outcome of an admin reset
type PasswordReset struct {
	UserEmail string `json:"user_email"`
	Emailed   bool   `json:"emailed"`
	// Password is only returned when it could not be emailed
	Password string `json:"password,omitempty"`
}

// ResetPassword sets a new password for the account. An empty password generates a
// temporary one. The new password is mailed through Resend; when email is switched off
// it is handed back to the admin instead.
func (s *UserService) ResetPassword(ctx context.Context, meta RequestMeta, id uint, password string) (*PasswordReset, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if password == "" {
		if password, err = GenerateTempPassword(); err != nil {
			return nil, fmt.Errorf("failed to generate password: %w", err)
		}
	}
	if err := s.setPassword(ctx, user, password); err != nil {
		return nil, err
	}
	s.auditSvc.Log(ctx, meta, models.AuditResetPass, models.EntityUser, user.ID,
		fmt.Sprintf("Senha redefinida por administrador: %s", user.Email))

	result := &PasswordReset{UserEmail: user.Email}
	if err := s.emailService.SendPasswordReset(ctx, user, password); err != nil {
		logger.Warn("password reset email not sent", "user_id", user.ID, "error", err)
		result.Password = password
		return result, nil
	}
	result.Emailed = true
	return result, nil
}

func (s *UserService) setPassword(ctx context.Context, user *models.User, password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: a nova senha deve ter pelo menos %d caracteres", ErrInvalidInput, minPasswordLength)
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.EncryptedPassword = hashed
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.revokeSessions(ctx, user.ID)
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID uint) {
	if err := s.refreshTokens.DeleteByUser(ctx, userID); err != nil {
		logger.Warn("failed to revoke refresh tokens", "user_id", userID, "error", err)
	}
}

func (s *UserService) changeEmail(ctx context.Context, user *models.User, email string) error {
	email = normalizeEmail(email)
	if email == user.Email {
		return nil
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if other, err := s.repo.FindByEmail(ctx, email); err == nil && other.ID != user.ID {
		return fmt.Errorf("%w: este e-mail já está sendo usado por outro usuário", ErrDuplicate)
	}
	user.Email = email
	return nil
}

func (s *UserService) save(ctx context.Context, meta RequestMeta, user *models.User, details string) (*models.User, error) {
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("%w: este e-mail já está sendo usado por outro usuário", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.auditSvc.Log(ctx, meta, models.AuditUpdate, models.EntityUser, user.ID, details)
	return user, nil
}

func applyAdminInput(user *models.User, in AdminUserInput) error {
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
		if user.FullName == "" {
			return fmt.Errorf("%w: nome é obrigatório", ErrInvalidInput)
		}
	}
	if in.Email != nil {
		user.Email = normalizeEmail(*in.Email)
	}
	if in.Company != nil {
		user.Company = trimmedOrNil(in.Company)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		switch *in.Role {
		case models.RoleAdmin, models.RoleBroker:
			user.Role = *in.Role
		default:
			return fmt.Errorf("%w: perfil %q", ErrInvalidInput, *in.Role)
		}
	}
	if in.Status != nil {
		switch *in.Status {
		case models.StatusActive, models.StatusInactive, models.StatusSuspended:
			user.Status = *in.Status
		default:
			return fmt.Errorf("%w: situação %q", ErrInvalidInput, *in.Status)
		}
	}
	if in.Locale != nil {
		locale, err := parseLocale(*in.Locale)
		if err != nil {
			return err
		}
		user.Locale = locale
	}
	return nil
}

func parseLocale(locale string) (string, error) {
	switch l := strings.ToLower(strings.TrimSpace(locale)); {
	case strings.HasPrefix(l, models.LocalePT):
		return models.LocalePT, nil
	case strings.HasPrefix(l, models.LocaleEN):
		return models.LocaleEN, nil
	}
	return "", fmt.Errorf("%w: idioma %q", ErrInvalidInput, locale)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: e-mail inválido", ErrInvalidInput)
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
