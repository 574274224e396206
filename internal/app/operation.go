package app

import "strings"

// Final statuses of a recorded operation.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation is the history record of one state-changing command, such as a
// move or a bookmark change. It has ID 0 until persisted.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	Err        error
}

// NewOperation returns an unsaved operation that succeeds unless Fail is called.
func NewOperation(operation string, args ...string) *Operation {
	return &Operation{
		Operation:  operation,
		Parameters: formatParameters(args),
		Status:     StatusSuccess,
	}
}

// Persisted reports whether the operation has a database ID.
func (op *Operation) Persisted() bool {
	return op.ID > 0
}

// Fail records err as the outcome. A nil err leaves the operation unchanged.
func (op *Operation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = StatusError
	op.Err = err
}

// formatParameters joins arguments with spaces, quoting any that are empty
// or contain whitespace.
func formatParameters(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
