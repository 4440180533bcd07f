package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	return NewAuthenticator(Config{
		JefeUser:      "jefe",
		JefePass:      "muy-secreto",
		PasantePrefix: "pasante",
		PasantePass:   "clave-pasante",
		TokenSecret:   "test-secret",
		TokenTTL:      time.Hour,
	}, zap.NewNop())
}

func TestLoginJefe(t *testing.T) {
	a := newTestAuthenticator(t)

	token, session, err := a.Login("jefe", "muy-secreto")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, RoleJefe, session.Role)
	assert.Empty(t, session.Site)
	assert.True(t, session.CanAccessSite("rinconada"))
	assert.True(t, session.CanAccessSite("pachacutec"))
}

func TestLoginPasanteDerivesSite(t *testing.T) {
	a := newTestAuthenticator(t)

	_, session, err := a.Login("pasante-rinconada", "clave-pasante")
	require.NoError(t, err)
	assert.Equal(t, RolePasante, session.Role)
	assert.Equal(t, "rinconada", session.Site)
	assert.True(t, session.CanAccessSite("rinconada"))
	assert.False(t, session.CanAccessSite("pachacutec"))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newTestAuthenticator(t)

	tests := []struct{ user, pass string }{
		{"jefe", "wrong"},
		{"pasante-rinconada", "wrong"},
		{"intruso", "clave-pasante"},
		{"pasante-", "clave-pasante"},
		{"", ""},
	}
	for _, tt := range tests {
		_, _, err := a.Login(tt.user, tt.pass)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "user=%q", tt.user)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	a := newTestAuthenticator(t)

	token, issued, err := a.Login("pasante-pachacutec", "clave-pasante")
	require.NoError(t, err)

	verified, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, issued, verified)
}

func TestVerifyRejectsTamperedAndExpiredTokens(t *testing.T) {
	a := newTestAuthenticator(t)

	token, _, err := a.Login("jefe", "muy-secreto")
	require.NoError(t, err)

	_, err = a.Verify(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthenticator(Config{
		JefeUser: "jefe", JefePass: "muy-secreto",
		TokenSecret: "different-secret", TokenTTL: time.Hour,
	}, zap.NewNop())
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// expiry
	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
