// Package auth resolves the two roles of the system. A jefe sees every
// site and reviews petty-cash; a pasante is bound to the site encoded in
// their username (<prefix>-<site>) and can only file today's report.
// Sessions travel as signed tokens so no per-request state lives in the
// process.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken is returned when a session token cannot be verified.
	ErrInvalidToken = errors.New("invalid session token")
)

// Role is the access level of a session.
type Role string

const (
	RoleJefe    Role = "jefe"
	RolePasante Role = "pasante"
)

// Session identifies the acting user for one request.
type Session struct {
	User string `json:"user"`
	Role Role   `json:"role"`
	Site string `json:"site,omitempty"` // assigned site, pasante only
}

// IsJefe reports whether the session has supervisor access.
func (s Session) IsJefe() bool {
	return s.Role == RoleJefe
}

// CanAccessSite reports whether the session may operate on the given site.
func (s Session) CanAccessSite(siteID string) bool {
	return s.IsJefe() || s.Site == siteID
}

// Config holds the credential pairs and token settings.
type Config struct {
	JefeUser      string
	JefePass      string
	PasantePrefix string
	PasantePass   string
	TokenSecret   string
	TokenTTL      time.Duration
}

// Authenticator validates credentials and issues/verifies session tokens.
type Authenticator struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(cfg Config, logger *zap.Logger) *Authenticator {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	return &Authenticator{cfg: cfg, logger: logger, now: time.Now}
}

// Login checks the credentials and returns a signed session token.
// Pasante usernames carry their site assignment: pasante-<site>.
func (a *Authenticator) Login(user, pass string) (string, Session, error) {
	var session Session
	switch {
	case user == a.cfg.JefeUser && pass == a.cfg.JefePass:
		session = Session{User: user, Role: RoleJefe}
	case strings.HasPrefix(user, a.cfg.PasantePrefix+"-") && pass == a.cfg.PasantePass:
		site := strings.SplitN(user, "-", 2)[1]
		if site == "" {
			return "", Session{}, ErrInvalidCredentials
		}
		session = Session{User: user, Role: RolePasante, Site: site}
	default:
		a.logger.Warn("Login rejected", zap.String("user", user))
		return "", Session{}, ErrInvalidCredentials
	}

	token, err := a.issue(session)
	if err != nil {
		return "", Session{}, err
	}
	a.logger.Info("Login accepted",
		zap.String("user", session.User),
		zap.String("role", string(session.Role)))
	return token, session, nil
}

func (a *Authenticator) issue(s Session) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"sub":  s.User,
		"role": string(s.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(a.cfg.TokenTTL).Unix(),
	}
	if s.Site != "" {
		claims["site"] = s.Site
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.cfg.TokenSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token back into a Session.
func (a *Authenticator) Verify(tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.cfg.TokenSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	user, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	site, _ := claims["site"].(string)
	if user == "" || (role != string(RoleJefe) && role != string(RolePasante)) {
		return Session{}, ErrInvalidToken
	}
	return Session{User: user, Role: Role(role), Site: site}, nil
}
