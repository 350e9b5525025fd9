package data

import (
	"strings"

	"github.com/target/queuectl/internal/domain/model"
)

// States each statement moves rows between, resolved through the model
// transition table. They are inlined as literals so the partial indexes on
// state stay usable by prepared statements.
var (
	acquireFrom    = model.JobStatePending
	acquireTo      = model.MustTransition(acquireFrom, model.EventAcquire)
	completeTo     = model.MustTransition(model.JobStateProcessing, model.EventComplete)
	staleLeaseFrom = model.JobStateProcessing
	staleLeaseTo   = model.MustTransition(staleLeaseFrom, model.EventLeaseStale)
)

// sqlStates renders states as a comma separated list of SQL string literals.
func sqlStates(states ...model.JobState) string {
	quoted := make([]string, len(states))
	for i, s := range states {
		quoted[i] = "'" + strings.ReplaceAll(s.String(), "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}
