package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docqa-backend/internal/shared/auth"
	"docqa-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
	isGuestKey   = "isGuest"

	guestHeader     = "X-Guest-Id"
	guestPrefix     = "guest:"
	maxGuestIDLen   = 64
	bearerPrefix    = "Bearer "
	unauthorizedMsg = "missing or invalid token"
)

var (
	errNoIdentity   = errors.New("missing identity")
	errBadToken     = errors.New("invalid token")
	errGuestBlocked = errors.New("guest access disabled")
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

type identity struct {
	userID string
	email  string
	name   string
	guest  bool
}

// Auth resolves the caller identity from a bearer JWT. Outside production-like
// environments an X-Guest-Id header is accepted instead and mapped to "guest:<id>".
func Auth(env string, verifier TokenVerifier) gin.HandlerFunc {
	allowGuests := env == "dev" || env == "local"
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		id, err := resolveIdentity(c.Request, verifier, allowGuests)
		if err != nil {
			msg := unauthorizedMsg
			if errors.Is(err, errNoIdentity) {
				msg = "Missing identity"
			}
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, msg, nil)
			return
		}

		c.Set(userIDKey, id.userID)
		c.Set(isGuestKey, id.guest)
		if id.email != "" {
			c.Set(userEmailKey, id.email)
		}
		if id.name != "" {
			c.Set(userNameKey, id.name)
		}
		c.Next()
	}
}

// resolveIdentity prefers the Authorization header; a present but bad token never
// falls back to guest identity.
func resolveIdentity(r *http.Request, verifier TokenVerifier, allowGuests bool) (identity, error) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		return bearerIdentity(header, verifier)
	}
	return guestIdentity(r.Header.Get(guestHeader), allowGuests)
}

func bearerIdentity(header string, verifier TokenVerifier) (identity, error) {
	if verifier == nil || !strings.HasPrefix(header, bearerPrefix) {
		return identity{}, errBadToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return identity{}, errBadToken
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		return identity{}, errBadToken
	}
	return identity{userID: claims.Subject, email: claims.Email, name: claims.Name}, nil
}

func guestIdentity(raw string, allowGuests bool) (identity, error) {
	guestID := strings.TrimSpace(raw)
	if guestID == "" {
		return identity{}, errNoIdentity
	}
	if !allowGuests {
		return identity{}, errGuestBlocked
	}
	if len(guestID) > maxGuestIDLen || strings.ContainsAny(guestID, " \t:/") {
		return identity{}, errBadToken
	}
	return identity{userID: guestPrefix + guestID, guest: true}, nil
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userNameKey)
}
