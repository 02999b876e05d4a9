// Package authz decides whether a caller may see and run an operation on an entity.
package authz

import (
	"fmt"
	"strings"
)

// Verdict is the tri-state visibility outcome.
type Verdict int

const (
	Enabled Verdict = iota
	Forbidden
	Invisible
)

func (v Verdict) String() string {
	switch v {
	case Forbidden:
		return "forbidden"
	case Invisible:
		return "invisible"
	default:
		return "enabled"
	}
}

// ParseVerdict parses the textual form produced by Verdict.String.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enabled":
		return Enabled, nil
	case "", "forbidden":
		return Forbidden, nil
	case "invisible":
		return Invisible, nil
	}
	return Forbidden, fmt.Errorf("unknown verdict %q", s)
}

// Decision is a verdict with the diagnostic of the check that produced it.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Allowed reports whether the decision lets the call through.
func (d Decision) Allowed() bool { return d.Verdict == Enabled }

func enabled() Decision { return Decision{Verdict: Enabled} }

func forbidden(reason string) Decision { return Decision{Verdict: Forbidden, Reason: reason} }

func invisible(reason string) Decision { return Decision{Verdict: Invisible, Reason: reason} }
