package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/student"
)

const (
	sessionTokenKey = "sessionToken"

	// roles stamped by the session provider
	roleStudent = student.RoleStudent
	roleTeacher = "teacher"
	roleAdmin   = "admin"
)

// Claims is the session payload the identity provider signs into a JWT.
// teacherId/rosterId may be absent; the engine backfills them from the
// membership store.
type Claims struct {
	jwt.StandardClaims
	Role      string   `json:"role,omitempty"`
	Username  string   `json:"username,omitempty"`
	Name      string   `json:"name,omitempty"`
	TeacherID string   `json:"teacherId,omitempty"`
	RosterID  string   `json:"rosterId,omitempty"`
	RosterIDs []string `json:"rosterIds,omitempty"`
}

func (c Claims) IsStudent() bool { return c.Role == roleStudent }
func (c Claims) IsTeacher() bool { return c.Role == roleTeacher }
func (c Claims) IsAdmin() bool   { return c.Role == roleAdmin }

// Session maps the claims to the identity the engine works with.
func (c Claims) Session() student.Session {
	return student.Session{
		Role:      c.Role,
		UID:       c.Subject,
		Username:  c.Username,
		Name:      c.Name,
		TeacherID: c.TeacherID,
		RosterID:  c.RosterID,
		RosterIDs: c.RosterIDs,
	}
}

// appJWTConfig is the JWT auth middleware config.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    sessionTokenKey,
		Claims:        new(Claims),
	}
}

// GetSessionClaims builds signable claims for a session; the session
// provider and the test suite both use it.
func GetSessionClaims(conf *core.Config, sess student.Session) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   sess.UID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:      sess.Role,
		Username:  sess.Username,
		Name:      sess.Name,
		TeacherID: sess.TeacherID,
		RosterID:  sess.RosterID,
		RosterIDs: sess.RosterIDs,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(sessionTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
