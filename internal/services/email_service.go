package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/sjperalta/roimob-api/internal/config"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

// emailSender is the part of the Resend client the service uses
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type EmailService struct {
	config *config.Config
	sender emailSender
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config: cfg,
		sender: client.Emails,
	}
}

// checkEmailPreconditions reports whether an email can be sent. A false result with a nil
// error means notifications are switched off and the caller should skip quietly.
func (s *EmailService) checkEmailPreconditions(to, operation string) (bool, error) {
	if !s.config.EnableEmailNotifications {
		logger.Debug("email notifications disabled, skipping", "operation", operation)
		return false, nil
	}
	if s.config.ResendAPIKey == "" {
		err := errors.New("RESEND_API_KEY is not set")
		logger.Error("email not configured", "operation", operation, "error", err)
		return false, err
	}
	if strings.TrimSpace(to) == "" {
		return false, errors.New("email address is empty")
	}
	return true, nil
}

// ShareLinkEmail is the data behind the share link message
type ShareLinkEmail struct {
	ClientName    string
	BrokerName    string
	BrokerEmail   string
	Title         string
	PropertyName  string
	Location      string
	PurchasePrice string
	ROI           string
	URL           string
	ExpiresAt     string
	Message       string
}

// SendShareLink emails a public report link to the projection's client
func (s *EmailService) SendShareLink(ctx context.Context, to string, data ShareLinkEmail) error {
	ok, err := s.checkEmailPreconditions(to, "share link")
	if err != nil {
		return err
	}
	if !ok {
		return ErrEmailDisabled
	}

	subject := fmt.Sprintf("Projeção de investimento: %s", data.Title)
	return s.send(ctx, to, subject, "share_link.html", data, data.BrokerEmail)
}

// RecalculatedProjection is one line of the index update summary
type RecalculatedProjection struct {
	Title      string
	ClientName string
	ROI        string
}

// SendIndexRecalculation tells a broker which projections were recalculated after an index update
func (s *EmailService) SendIndexRecalculation(ctx context.Context, broker *models.User, indexType string, month string, items []RecalculatedProjection) error {
	ok, err := s.checkEmailPreconditions(broker.Email, "index recalculation")
	if !ok {
		return err
	}

	data := struct {
		Name        string
		IndexType   string
		Month       string
		Projections []RecalculatedProjection
		AppURL      string
		SentAt      string
	}{
		Name:        broker.FullName,
		IndexType:   strings.ToUpper(indexType),
		Month:       month,
		Projections: items,
		AppURL:      s.config.PublicBaseURL,
		SentAt:      time.Now().Format("02/01/2006 15:04"),
	}

	subject := fmt.Sprintf("%s atualizado: %d projeções recalculadas", strings.ToUpper(indexType), len(items))
	return s.send(ctx, broker.Email, subject, "index_recalculated.html", data, "")
}

// SendWelcome greets a new account. tempPassword is set when an admin created it.
func (s *EmailService) SendWelcome(ctx context.Context, user *models.User, tempPassword string) error {
	ok, err := s.checkEmailPreconditions(user.Email, "welcome")
	if !ok {
		return err
	}

	data := struct {
		Name         string
		Email        string
		TempPassword string
		AppURL       string
	}{
		Name:         user.FullName,
		Email:        user.Email,
		TempPassword: tempPassword,
		AppURL:       s.config.PublicBaseURL,
	}
	return s.send(ctx, user.Email, "Bem-vindo ao ROImob", "welcome.html", data, "")
}

// SendPasswordReset delivers the password an admin set for the account
func (s *EmailService) SendPasswordReset(ctx context.Context, user *models.User, password string) error {
	ok, err := s.checkEmailPreconditions(user.Email, "password reset")
	if err != nil {
		return err
	}
	if !ok {
		return ErrEmailDisabled
	}

	data := struct {
		Name     string
		Password string
		AppURL   string
		SentAt   string
	}{
		Name:     user.FullName,
		Password: password,
		AppURL:   s.config.PublicBaseURL,
		SentAt:   time.Now().Format("02/01/2006 15:04"),
	}
	return s.send(ctx, user.Email, "Sua senha do ROImob foi redefinida", "password_reset.html", data, "")
}

func (s *EmailService) send(ctx context.Context, to, subject, templateName string, data interface{}, replyTo string) error {
	body, err := s.renderTemplate(templateName, data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    body,
		ReplyTo: replyTo,
	}
	resp, err := s.sender.SendWithContext(ctx, params)
	if err != nil {
		logger.Error("failed to send email", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("email sent", "to", to, "subject", subject, "id", resp.Id)
	return nil
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
