package services

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/sjperalta/roimob-api/internal/config"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmailSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (m *mockEmailSender) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, params)
	return &resend.SendEmailResponse{Id: "email-1"}, nil
}

func newTestEmailService(sender emailSender) *EmailService {
	svc := NewEmailService(&config.Config{
		EnableEmailNotifications: true,
		ResendAPIKey:             "test_key",
		FromEmail:                "noreply@roimob.com.br",
		PublicBaseURL:            "https://app.roimob.com.br",
	})
	svc.sender = sender
	return svc
}

func TestEmailService_checkEmailPreconditions(t *testing.T) {
	logger.Setup("test")

	// Notifications disabled
	service := NewEmailService(&config.Config{EnableEmailNotifications: false})
	ok, err := service.checkEmailPreconditions("test@example.com", "test operation")
	assert.False(t, ok, "Should return false when notifications are disabled")
	assert.Nil(t, err, "Should not return error when notifications are disabled")

	// Configured and valid
	service = NewEmailService(&config.Config{
		EnableEmailNotifications: true,
		ResendAPIKey:             "test_key",
		FromEmail:                "from@example.com",
	})
	ok, err = service.checkEmailPreconditions("test@example.com", "test operation")
	assert.True(t, ok)
	assert.Nil(t, err)

	// Missing key
	service = NewEmailService(&config.Config{
		EnableEmailNotifications: true,
		FromEmail:                "from@example.com",
	})
	ok, err = service.checkEmailPreconditions("test@example.com", "test operation")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY is not set")

	// Empty recipient
	service = NewEmailService(&config.Config{
		EnableEmailNotifications: true,
		ResendAPIKey:             "test_key",
	})
	ok, err = service.checkEmailPreconditions("  ", "test operation")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, "email address is empty", err.Error())
}

func TestEmailService_SendShareLink(t *testing.T) {
	sender := &mockEmailSender{}
	service := newTestEmailService(sender)

	err := service.SendShareLink(context.Background(), "cliente@exemplo.com", ShareLinkEmail{
		ClientName:    "Maria",
		BrokerName:    "João Corretor",
		BrokerEmail:   "joao@imobiliaria.com",
		Title:         "Studio Batel 1204",
		PropertyName:  "Edifício Batel",
		PurchasePrice: FormatBRL(450000),
		ROI:           FormatPercent(18.5),
		URL:           "https://app.roimob.com.br/r/abc",
		ExpiresAt:     "30/11/2026",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"cliente@exemplo.com"}, msg.To)
	assert.Equal(t, "noreply@roimob.com.br", msg.From)
	assert.Equal(t, "joao@imobiliaria.com", msg.ReplyTo)
	assert.Equal(t, "Projeção de investimento: Studio Batel 1204", msg.Subject)
	assert.Contains(t, msg.Html, "https://app.roimob.com.br/r/abc")
	assert.Contains(t, msg.Html, "R$ 450.000,00")
	assert.Contains(t, msg.Html, "30/11/2026")
}

func TestEmailService_SendShareLink_Disabled(t *testing.T) {
	service := NewEmailService(&config.Config{EnableEmailNotifications: false})
	err := service.SendShareLink(context.Background(), "cliente@exemplo.com", ShareLinkEmail{})
	assert.ErrorIs(t, err, ErrEmailDisabled)
}

func TestEmailService_SendShareLink_ProviderError(t *testing.T) {
	service := newTestEmailService(&mockEmailSender{err: errors.New("rate limited")})
	err := service.SendShareLink(context.Background(), "cliente@exemplo.com", ShareLinkEmail{Title: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestEmailService_SendIndexRecalculation(t *testing.T) {
	sender := &mockEmailSender{}
	service := newTestEmailService(sender)
	broker := &models.User{Email: "corretor@roimob.test", FullName: "Ana"}

	err := service.SendIndexRecalculation(context.Background(), broker, models.IndexINCC, "2026-09", []RecalculatedProjection{
		{Title: "Studio 12", ClientName: "Carlos", ROI: "14,20%"},
		{Title: "Cobertura 3", ClientName: "Beatriz", ROI: "21,05%"},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "INCC atualizado: 2 projeções recalculadas", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Html, "Cobertura 3")
	assert.Contains(t, sender.sent[0].Html, "2026-09")
}

func TestEmailService_SendIndexRecalculation_DisabledIsSilent(t *testing.T) {
	service := NewEmailService(&config.Config{})
	err := service.SendIndexRecalculation(context.Background(), &models.User{Email: "a@b.c"}, models.IndexIPCA, "2026-09", nil)
	assert.NoError(t, err)
}

func TestEmailService_SendWelcome(t *testing.T) {
	sender := &mockEmailSender{}
	service := newTestEmailService(sender)
	user := &models.User{Email: "nova@roimob.test", FullName: "Paula Lima"}

	require.NoError(t, service.SendWelcome(context.Background(), user, ""))
	require.NoError(t, service.SendWelcome(context.Background(), user, "K7#pQ2xm9A"))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Bem-vindo ao ROImob", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Html, "nova@roimob.test")
	assert.NotContains(t, sender.sent[0].Html, "Senha provisória")
	assert.Contains(t, sender.sent[1].Html, "K7#pQ2xm9A")
}

func TestEmailService_SendPasswordReset(t *testing.T) {
	sender := &mockEmailSender{}
	service := newTestEmailService(sender)
	user := &models.User{Email: "corretor@roimob.test", FullName: "Ana"}

	require.NoError(t, service.SendPasswordReset(context.Background(), user, "nova-senha-1"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"corretor@roimob.test"}, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Html, "nova-senha-1")

	disabled := NewEmailService(&config.Config{})
	assert.ErrorIs(t, disabled.SendPasswordReset(context.Background(), user, "x"), ErrEmailDisabled)
}
