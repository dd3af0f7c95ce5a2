// Package session carries the authenticated identity through a request.
// A request either has a fully resolved Identity attached or has none.
package session

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
)

const identityKey = "session.identity"

// Identity is the resolved user behind a verified session token.
type Identity struct {
	ID            string
	Email         string
	Name          string
	Institution   string
	MaterialCount int
	Role          entity.Role
}

func IdentityOf(u *entity.User) Identity {
	return Identity{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Institution:   u.Institution,
		MaterialCount: u.MaterialCount,
		Role:          u.Role,
	}
}

func Attach(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// MustFromContext is for handlers mounted behind Authenticate. It panics when
// the route was wired without it.
func MustFromContext(c *gin.Context) Identity {
	id, ok := FromContext(c)
	if !ok {
		panic("session: no identity attached; route is missing the Authenticate middleware")
	}
	return id
}
