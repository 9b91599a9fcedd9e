package services

import (
	"strings"
	"testing"

	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTempPassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pw, err := GenerateTempPassword()
		require.NoError(t, err)
		assert.Len(t, pw, tempPasswordLength)
		assert.True(t, strings.ContainsAny(pw, "23456789"), pw)
		assert.True(t, strings.ContainsAny(pw, "ABCDEFGHJKLMNPQRSTUVWXYZ"), pw)
		assert.True(t, strings.ContainsAny(pw, "abcdefghijkmnpqrstuvwxyz"), pw)
		assert.True(t, strings.ContainsAny(pw, "!@#$%&*"), pw)
		assert.False(t, strings.ContainsAny(pw, "0O1lI"), "look-alike characters: %s", pw)
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "pt-BR", want: "pt"},
		{in: " EN_us ", want: "en"},
		{in: "es", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLocale(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyAdminInput(t *testing.T) {
	t.Run("rejects unknown role", func(t *testing.T) {
		role := "gerente"
		err := applyAdminInput(&models.User{}, AdminUserInput{Role: &role})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
	t.Run("blank company clears it", func(t *testing.T) {
		company, blank := "Aurora", "  "
		user := &models.User{Company: &company}
		require.NoError(t, applyAdminInput(user, AdminUserInput{Company: &blank}))
		assert.Nil(t, user.Company)
	})
}
