package testutil

import (
	"time"

	"github.com/target/queuectl/internal/domain/model"
)

// JobRequestBuilder builds CreateJobRequest values for tests.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest starts a builder for a job that runs "true".
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{req: &model.CreateJobRequest{Command: "true"}}
}

// WithID sets an explicit job id.
func (b *JobRequestBuilder) WithID(id string) *JobRequestBuilder {
	b.req.ID = id
	return b
}

// WithCommand sets the shell command.
func (b *JobRequestBuilder) WithCommand(cmd string) *JobRequestBuilder {
	b.req.Command = cmd
	return b
}

// WithMaxRetries overrides the config default retry budget.
func (b *JobRequestBuilder) WithMaxRetries(n int) *JobRequestBuilder {
	b.req.MaxRetries = &n
	return b
}

// WithRunAt defers the job until t.
func (b *JobRequestBuilder) WithRunAt(t time.Time) *JobRequestBuilder {
	b.req.RunAt = &t
	return b
}

// WithTimeout sets the execution timeout in seconds.
func (b *JobRequestBuilder) WithTimeout(seconds int) *JobRequestBuilder {
	b.req.TimeoutSeconds = &seconds
	return b
}

// Build returns the request.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}
