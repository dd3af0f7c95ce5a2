package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/domain/gateway"
	"github.com/oksasatya/lessonhub/pkg/mailer"
	tpl "github.com/oksasatya/lessonhub/pkg/mailer/templates"
)

const publishTimeout = 3 * time.Second

// Notifier enqueues account emails. A failed publish is logged and never
// fails the request that triggered it.
type Notifier struct {
	Pub    gateway.Publisher
	Brand  tpl.Branding
	Logger *logrus.Logger
}

func NewNotifier(pub gateway.Publisher, brand tpl.Branding, logger *logrus.Logger) *Notifier {
	return &Notifier{Pub: pub, Brand: brand, Logger: logger}
}

func (n *Notifier) Welcome(c *gin.Context, u *entity.User) {
	if n == nil {
		return
	}
	n.publish(c, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(n.Brand, u.Name, u.Email, tpl.WithTime(time.Now())),
	})
}

func (n *Notifier) PasswordChanged(c *gin.Context, u *entity.User) {
	if n == nil {
		return
	}
	n.publish(c, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.PasswordChanged,
		Data: tpl.NewPasswordChangedData(n.Brand, u.Name, u.Email,
			tpl.WithTime(time.Now()),
			tpl.WithIP(clientIP(c)),
			tpl.WithUserAgent(c.GetHeader("User-Agent")),
		),
	})
}

func (n *Notifier) publish(c *gin.Context, job mailer.EmailJob) {
	if n.Pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), publishTimeout)
	defer cancel()
	if err := n.Pub.PublishJSON(ctx, job); err != nil {
		n.Logger.WithError(err).WithField("template", job.Template).Warn("failed to publish email job")
	}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
