package helpers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/lessonhub/pkg/mailer"
	mailtpl "github.com/oksasatya/lessonhub/pkg/mailer/templates"
)

var ErrInvalidEmailJob = errors.New("invalid email job")

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// PrepareEmailJob normalises a job pulled off the queue and rejects ones the
// worker can never send. Errors wrap ErrInvalidEmailJob.
func PrepareEmailJob(job *mailer.EmailJob) error {
	job.To = strings.TrimSpace(job.To)
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
	if job.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrInvalidEmailJob)
	}
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return fmt.Errorf("%w: needs a template or subject and body", ErrInvalidEmailJob)
		}
		return nil
	}
	if !mailtpl.Known(job.Template) {
		return fmt.Errorf("%w: unknown template %q", ErrInvalidEmailJob, job.Template)
	}
	EnsureRecipientAndEmail(job)
	return nil
}
