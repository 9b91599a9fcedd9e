package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/roimob-api/internal/config"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserRepo struct {
	repository.UserRepository
	mockFindByEmail func(ctx context.Context, email string) (*models.User, error)
	mockFindByID    func(ctx context.Context, id uint) (*models.User, error)
	touched         []uint
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.mockFindByEmail(ctx, email)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockUserRepo) TouchLastActive(ctx context.Context, id uint) error {
	m.touched = append(m.touched, id)
	return nil
}

type mockRTRepo struct {
	repository.RefreshTokenRepository
	mockFindByToken func(ctx context.Context, token string) (*models.RefreshToken, error)
	created         []*models.RefreshToken
	deleted         []string
}

func (m *mockRTRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return m.mockFindByToken(ctx, token)
}

func (m *mockRTRepo) Create(ctx context.Context, rt *models.RefreshToken) error {
	m.created = append(m.created, rt)
	return nil
}

func (m *mockRTRepo) Delete(ctx context.Context, token string) error {
	m.deleted = append(m.deleted, token)
	return nil
}

func testAuthConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
}

func TestAuthService_Login_Success(t *testing.T) {
	hash, err := HashPassword("senha-forte")
	require.NoError(t, err)

	users := &mockUserRepo{mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{ID: 7, Email: email, EncryptedPassword: hash, Role: models.RoleBroker, Status: models.StatusActive, Locale: models.LocalePT}, nil
	}}
	tokens := &mockRTRepo{}
	service := NewAuthService(users, tokens, testAuthConfig())

	result, err := service.Login(context.Background(), "corretor@roimob.test", "senha-forte")
	require.NoError(t, err)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, uint(7), result.User.ID)
	assert.Equal(t, []uint{7}, users.touched)
	require.Len(t, tokens.created, 1)
	assert.WithinDuration(t, time.Now().Add(refreshTokenTTL), *tokens.created[0].ExpiresAt, time.Minute)

	parsed, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "broker", claims["role"])
	assert.Equal(t, "pt", claims["locale"])
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	hash, _ := HashPassword("senha-forte")
	users := &mockUserRepo{mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{Email: email, EncryptedPassword: hash, Status: models.StatusActive}, nil
	}}
	service := NewAuthService(users, &mockRTRepo{}, testAuthConfig())

	result, err := service.Login(context.Background(), "corretor@roimob.test", "errada")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	users := &mockUserRepo{mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
		return nil, errors.New("record not found")
	}}
	service := NewAuthService(users, nil, nil)

	_, err := service.Login(context.Background(), "ninguem@roimob.test", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	mockRepo := &mockUserRepo{}
	service := NewAuthService(mockRepo, nil, nil)

	mockRepo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{
			Email:  email,
			Status: models.StatusInactive,
		}, nil
	}

	result, err := service.Login(context.Background(), "inactive@example.com", "password")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInactiveAccount)
	assert.Equal(t, "conta inativa ou suspensa", err.Error())
}

func TestAuthService_RefreshToken_InactiveUser(t *testing.T) {
	mockRepo := &mockUserRepo{}
	rtRepo := &mockRTRepo{}
	service := NewAuthService(mockRepo, rtRepo, nil)

	rtRepo.mockFindByToken = func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 1}, nil
	}
	mockRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{
			ID:     id,
			Status: models.StatusInactive,
		}, nil
	}

	result, err := service.RefreshToken(context.Background(), "token")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestAuthService_RefreshToken_Expired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	rtRepo := &mockRTRepo{mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 1, Token: token, ExpiresAt: &past}, nil
	}}
	service := NewAuthService(&mockUserRepo{}, rtRepo, nil)

	_, err := service.RefreshToken(context.Background(), "velho")
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Equal(t, []string{"velho"}, rtRepo.deleted)
}

func TestAuthService_RefreshToken_Rotates(t *testing.T) {
	users := &mockUserRepo{mockFindByID: func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Email: "a@roimob.test", Status: models.StatusActive}, nil
	}}
	rtRepo := &mockRTRepo{mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 3, Token: token}, nil
	}}
	service := NewAuthService(users, rtRepo, testAuthConfig())

	result, err := service.RefreshToken(context.Background(), "antigo")
	require.NoError(t, err)
	assert.Equal(t, []string{"antigo"}, rtRepo.deleted)
	require.Len(t, rtRepo.created, 1)
	assert.Equal(t, result.RefreshToken, rtRepo.created[0].Token)
	assert.NotEqual(t, "antigo", result.RefreshToken)
}
