package container

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/config"
	"github.com/oksasatya/lessonhub/internal/application"
	"github.com/oksasatya/lessonhub/internal/domain/gateway"
	"github.com/oksasatya/lessonhub/internal/domain/repository"
	"github.com/oksasatya/lessonhub/internal/ratelimit"
	"github.com/oksasatya/lessonhub/pkg/helpers"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Container carries the constructed infrastructure the router wires modules
// from. cmd/main.go fills it from real backends; tests fill it with fakes.
type Container struct {
	Config    *config.Config
	Logger    *logrus.Logger
	DB        Pinger
	Users     repository.UserRepository
	Materials repository.MaterialRepository
	Hasher    application.PasswordHasher
	JWT       *helpers.JWTManager
	Cookies   *helpers.SessionCookie
	Limiter   ratelimit.Limiter
	Storage   gateway.ObjectStorage
	Generator gateway.TextGenerator
	Publisher gateway.Publisher
}

// Validate reports the first collaborator the router cannot run without.
func (c *Container) Validate() error {
	switch {
	case c.Config == nil:
		return errMissing("config")
	case c.Logger == nil:
		return errMissing("logger")
	case c.Users == nil:
		return errMissing("user repository")
	case c.Materials == nil:
		return errMissing("material repository")
	case c.Hasher == nil:
		return errMissing("password hasher")
	case c.JWT == nil:
		return errMissing("jwt manager")
	case c.Cookies == nil:
		return errMissing("session cookie")
	case c.Limiter == nil:
		return errMissing("rate limiter")
	case c.Storage == nil:
		return errMissing("object storage")
	}
	return nil
}

type missingError string

func (e missingError) Error() string { return "container: missing " + string(e) }

func errMissing(what string) error { return missingError(what) }
