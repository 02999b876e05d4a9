package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectEngine      = "ops.engine.v1"
	SubjectChangeEvent = "operations.changed"
)

// BuildChangeSubject builds the per-action change event subject,
// e.g. "operations.changed.discovered".
func BuildChangeSubject(action string) string {
	return fmt.Sprintf("%s.%s", SubjectChangeEvent, strings.ToLower(action))
}

// BuildServiceSubject builds the request subject an engine instance serves,
// e.g. "ops.engine.v1" or "ops.content_tools.v2".
func BuildServiceSubject(service string, major int) string {
	safe := strings.ReplaceAll(strings.ToLower(service), ".", "_")
	safe = strings.ReplaceAll(safe, "-", "_")
	return fmt.Sprintf("ops.%s.v%d", safe, major)
}
