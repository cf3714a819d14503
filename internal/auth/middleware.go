package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/i18n"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

const (
	HeaderAPIKey = "X-API-Key"
	HeaderUserID = "X-User-Id"

	identityKey = "identity"
)

// Identity is the caller of one request.
type Identity struct {
	UserID string
	// Email is the verified email from the token, empty for internal calls
	// or unverified addresses.
	Email string
	// Internal is set when a trusted backend acts on behalf of UserID.
	Internal bool
}

// Resolver turns request credentials into an Identity.
type Resolver struct {
	verifier    *TokenVerifier
	internalKey InternalKey
	logger      *logrus.Logger
}

func NewResolver(verifier *TokenVerifier, internalKey InternalKey, logger *logrus.Logger) *Resolver {
	return &Resolver{
		verifier:    verifier,
		internalKey: internalKey,
		logger:      logger,
	}
}

// Resolve returns the caller identity. A matching internal key together with
// a target user id wins unconditionally; otherwise a bearer token is required.
func (r *Resolver) Resolve(req *http.Request) (Identity, error) {
	if target := strings.TrimSpace(req.Header.Get(HeaderUserID)); target != "" {
		if r.internalKey.Matches(req.Header.Get(HeaderAPIKey)) {
			return Identity{UserID: target, Internal: true}, nil
		}
	}

	header := req.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if header == "" || tokenString == header {
		return Identity{}, apperr.ErrUnauthenticated
	}

	claims, err := r.verifier.Verify(tokenString)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, apperr.CodeUnauthenticated, "invalid token", err)
	}

	ident := Identity{UserID: claims.Subject}
	if claims.EmailVerified {
		ident.Email = NormalizeEmail(claims.Email)
	}
	return ident, nil
}

// Middleware resolves the identity and aborts with 401 when there is none.
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := r.Resolve(c.Request)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			}).Debug("Rejected unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": i18n.Message(apperr.ErrUnauthenticated, c.GetHeader("Accept-Language")),
			})
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// ResolveEmail returns the caller's verified email. Internal callers carry
// no token, so the stored user email is read through users, which inside a
// transaction must be the transaction's own queries. It fails closed.
func (r *Resolver) ResolveEmail(ctx context.Context, users repository.UserRepository, ident Identity) (string, error) {
	if ident.Email != "" {
		return ident.Email, nil
	}

	user, err := users.GetUser(ctx, ident.UserID)
	if err != nil {
		return "", apperr.Internal("resolve email", err)
	}
	if user == nil || user.Email == "" {
		return "", apperr.ErrEmailUnavailable
	}
	return NormalizeEmail(user.Email), nil
}

// GetIdentity returns the identity stored by Middleware.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}
	ident, ok := v.(Identity)
	return ident, ok
}

func GetUserID(c *gin.Context) (string, bool) {
	ident, ok := GetIdentity(c)
	return ident.UserID, ok
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
