// Package gateway declares the external collaborators the application layer
// talks to: object storage, the text-generation service and the job queue.
package gateway

import (
	"context"
	"errors"
	"io"
)

// ObjectStorage stores uploaded files and returns their public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// Publisher enqueues a JSON job.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

var (
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrUpstreamQuota       = errors.New("upstream quota exhausted")
	ErrUpstreamAuth        = errors.New("upstream rejected credentials")
	ErrUpstreamResponse    = errors.New("upstream returned an invalid response")
)

// GenerationRequest is what the text generator receives: a bounded excerpt,
// material metadata and the JSON schema the answer must follow.
type GenerationRequest struct {
	Excerpt    string
	Title      string
	Subject    string
	Grade      string
	Difficulty string
	Schema     string
}

// TextGenerator returns the raw JSON document produced for req. Failures are
// wrapped with one of the ErrUpstream* sentinels.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]byte, error)
}
