package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/pkg/helpers"
	"github.com/oksasatya/lessonhub/pkg/mailer"
	mailtpl "github.com/oksasatya/lessonhub/pkg/mailer/templates"
)

type outcome int

const (
	outcomeAck outcome = iota
	// malformed or unrenderable; requeueing would loop forever
	outcomeDrop
	outcomeRetry
)

type worker struct {
	sender  mailer.Sender
	timeout time.Duration
	logger  *logrus.Logger
}

// handle renders and sends one queued job.
func (w *worker) handle(ctx context.Context, body []byte) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.WithError(err).Warn("bad message")
		return outcomeDrop
	}
	if err := helpers.PrepareEmailJob(&job); err != nil {
		w.logger.WithError(err).Warn("rejected email job")
		return outcomeDrop
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			w.logger.WithError(err).WithField("template", job.Template).Error("render failed")
			return outcomeDrop
		}
		subject, text, html = s, t, h
	}

	c, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sender.Send(c, job.To, subject, text, html); err != nil {
		w.logger.WithError(err).WithField("template", job.Template).Warn("send failed; requeueing")
		return outcomeRetry
	}
	w.logger.WithField("template", job.Template).Info("email sent")
	return outcomeAck
}
