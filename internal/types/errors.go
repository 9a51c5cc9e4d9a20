package types

import (
	"fmt"

	"monogen/internal/diag"
)

// InternalError signals a broken invariant of the engine itself (never a user
// error). It is raised with panic and recovered once at the driver boundary.
type InternalError struct {
	Code   diag.Code
	Op     string
	Detail string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in %s: %s", e.Op, e.Detail)
}

// Internalf panics with an InternalError.
func Internalf(code diag.Code, op, format string, args ...any) {
	panic(&InternalError{Code: code, Op: op, Detail: fmt.Sprintf(format, args...)})
}
