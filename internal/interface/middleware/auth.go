package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/domain/repository"
	"github.com/oksasatya/lessonhub/internal/session"
	"github.com/oksasatya/lessonhub/pkg/apperror"
	"github.com/oksasatya/lessonhub/pkg/helpers"
	"github.com/oksasatya/lessonhub/pkg/response"
)

var (
	ErrMissingToken   = errors.New("missing session token")
	ErrUnknownSubject = errors.New("token subject no longer exists")
	ErrClaimMismatch  = errors.New("token email does not match stored email")
	ErrForbidden      = errors.New("identity may not act on this resource")
)

type TokenVerifier interface {
	Verify(token string) (*helpers.Claims, error)
}

type SubjectStore interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// OwnerLookup returns the owner id of the resource with the given id.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, id string) (string, error)
}

// Guard resolves the session cookie to a live user and attaches it to the
// request. It never writes to the store.
type Guard struct {
	users   SubjectStore
	tokens  TokenVerifier
	cookies *helpers.SessionCookie
	logger  *logrus.Logger
}

func NewGuard(users SubjectStore, tokens TokenVerifier, cookies *helpers.SessionCookie, logger *logrus.Logger) *Guard {
	return &Guard{users: users, tokens: tokens, cookies: cookies, logger: logger}
}

// Resolve verifies token and loads its subject. Errors are one of
// ErrMissingToken, a helpers.ErrToken* sentinel, ErrUnknownSubject,
// ErrClaimMismatch or a store failure.
func (g *Guard) Resolve(ctx context.Context, token string) (session.Identity, error) {
	if token == "" {
		return session.Identity{}, ErrMissingToken
	}
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return session.Identity{}, err
	}
	u, err := g.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return session.Identity{}, ErrUnknownSubject
	}
	if err != nil {
		return session.Identity{}, fmt.Errorf("load token subject: %w", err)
	}
	if entity.NormalizeEmail(u.Email) != entity.NormalizeEmail(claims.Email) {
		return session.Identity{}, ErrClaimMismatch
	}
	return session.IdentityOf(u), nil
}

// Authenticate rejects the request with 401 unless a valid session is present.
func (g *Guard) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := g.cookies.Read(c)
		id, err := g.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Fail(c, g.reject(c, err))
			return
		}
		session.Attach(c, id)
		c.Next()
	}
}

// AuthenticateOptional attaches an identity when the session resolves and
// otherwise lets the request through anonymously.
func (g *Guard) AuthenticateOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := g.cookies.Read(c)
		if !ok {
			c.Next()
			return
		}
		id, err := g.Resolve(c.Request.Context(), token)
		if err != nil {
			g.entry(c).WithField("reason", reasonOf(err)).Debug("optional session ignored")
			c.Next()
			return
		}
		session.Attach(c, id)
		c.Next()
	}
}

// RequireOwnership must be mounted after Authenticate. It loads the owner of
// the resource named by the route param and answers 403 for anyone else.
func (g *Guard) RequireOwnership(lookup OwnerLookup, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := session.FromContext(c)
		if !ok {
			response.Fail(c, apperror.Wrap(apperror.KindAuthentication, "authentication required", ErrMissingToken))
			return
		}
		owner, err := lookup.OwnerOf(c.Request.Context(), c.Param(param))
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, apperror.Wrap(apperror.KindNotFound, "resource not found", err))
			return
		}
		if err != nil {
			response.Fail(c, fmt.Errorf("load resource owner: %w", err))
			return
		}
		if owner != id.ID {
			g.entry(c).WithFields(logrus.Fields{"user_id": id.ID, "resource_id": c.Param(param)}).
				Warn("ownership check failed")
			response.Fail(c, apperror.Wrap(apperror.KindAuthorization, "forbidden", ErrForbidden))
			return
		}
		c.Next()
	}
}

// RequireRole must be mounted after Authenticate.
func (g *Guard) RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := session.FromContext(c)
		if !ok {
			response.Fail(c, apperror.Wrap(apperror.KindAuthentication, "authentication required", ErrMissingToken))
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		g.entry(c).WithFields(logrus.Fields{"user_id": id.ID, "role": id.Role.String()}).Warn("role check failed")
		response.Fail(c, apperror.Wrap(apperror.KindAuthorization, "forbidden", ErrForbidden))
	}
}

// reject logs the precise reason and returns the generic error the client sees.
func (g *Guard) reject(c *gin.Context, err error) error {
	reason := reasonOf(err)
	if reason == "store_error" {
		return err
	}
	msg := "invalid token"
	switch reason {
	case "missing":
		msg = "authentication required"
	case "expired":
		msg = "token expired"
	}
	g.entry(c).WithField("reason", reason).Info("authentication rejected")
	return apperror.Wrap(apperror.KindAuthentication, msg, err)
}

func (g *Guard) entry(c *gin.Context) *logrus.Entry {
	return g.logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"ip":         ipFromCtx(c),
	})
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, helpers.ErrTokenExpired):
		return "expired"
	case errors.Is(err, helpers.ErrTokenPremature):
		return "premature"
	case errors.Is(err, helpers.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, ErrClaimMismatch):
		return "claim_mismatch"
	default:
		return "store_error"
	}
}
