// Package errors turns errors into low-cardinality labels for metrics and logs.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{model.ErrTimeoutExceeded, "timeout"},
	{model.ErrExecutionFailure, "execution_failure"},
	{model.ErrNoJobsAvailable, "no_jobs"},
	{model.ErrJobNotFound, "not_found"},
	{model.ErrNotInDLQ, "not_in_dlq"},
	{model.ErrDuplicateID, "duplicate_id"},
	{context.DeadlineExceeded, "deadline_exceeded"},
	{context.Canceled, "canceled"},
}

// Classify returns a label for err: a known sentinel name, the AppError code,
// or the snake_cased type of the innermost error.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinelClasses {
		if goerrors.Is(err, s.err) {
			return s.class
		}
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
