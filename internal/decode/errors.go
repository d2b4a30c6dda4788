package decode

import (
	"fmt"

	"avroflow/internal/avro"
)

// InvariantViolationError reports a non-insert record on a source configured
// as insert-only. This is a source-contract bug, not a transient fault: the
// host pipeline treats it as fatal rather than dropping the record.
type InvariantViolationError struct {
	DebugName string
	Pair      avro.DiffPair
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf(
		"source %s is configured insert-only but produced a non-insert record (before: %v, after: %v); this usually means the source was started mid-stream",
		e.DebugName, e.Pair.Before, e.Pair.After)
}
