// Package validator screens agent-authored code before it reaches an
// interpreter. It provides two independent, pure checks: a fast textual
// pattern screen applied to every execution request, and a stricter
// syntax-tree screen applied when code is registered as a permanent tool.
// Both screens fail closed.
package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// RejectionError reports which screen rejected the code and why.
type RejectionError struct {
	// Screen is "pattern" or "syntax".
	Screen string
	// Reason is a human-readable description of the matched rule.
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("code rejected by %s screen: %s", e.Screen, e.Reason)
}

// Pattern pairs a compiled denylist regex with a description of the attack
// shape it catches. The list is package-level data so it can be audited and
// extended without touching control flow.
type Pattern struct {
	Regexp      *regexp.Regexp
	Description string
}

// dangerousPatterns is the textual denylist. Matching is case-insensitive
// over the raw source text; a single match is sufficient to reject.
var dangerousPatterns = []Pattern{
	{regexp.MustCompile(`(?i)\bos\.system\s*\(`), "os.system process spawn"},
	{regexp.MustCompile(`(?i)\bsubprocess\s*\.\s*`), "subprocess module use"},
	{regexp.MustCompile(`(?i)\bexec\s*\(`), "dynamic exec"},
	{regexp.MustCompile(`(?i)\beval\s*\(`), "dynamic eval"},
	{regexp.MustCompile(`(?i)__import__\s*\(`), "dynamic import"},
	{regexp.MustCompile(`(?i)open\s*\(\s*['"]/`), "absolute-path file open"},
	{regexp.MustCompile(`(?i)rm\s+-rf`), "destructive shell command"},
	{regexp.MustCompile(`(?i)rm\s+-r\s+/`), "recursive deletion of root"},
	{regexp.MustCompile(`(?i)\bimport\s+os\b`), "import of os module"},
	{regexp.MustCompile(`(?i)\bimport\s+subprocess\b`), "import of subprocess module"},
	{regexp.MustCompile(`(?i)\bimport\s+sys\b`), "import of sys module"},
	{regexp.MustCompile(`(?i)__builtins__`), "builtins introspection"},
	{regexp.MustCompile(`(?i)breakpoint\s*\(`), "debugger breakpoint"},
	{regexp.MustCompile(`(?i)compile\s*\(`), "dynamic compilation"},
}

// ScreenPatterns rejects a code string that matches any denylisted pattern.
// It is a coarse filter meant to catch obvious attacks before the code
// reaches a process at all; no partial execution ever happens on a match.
// Returns nil if the code passes.
func ScreenPatterns(code string) error {
	for _, p := range dangerousPatterns {
		if p.Regexp.MatchString(code) {
			return &RejectionError{Screen: "pattern", Reason: p.Description}
		}
	}
	if strings.Contains(code, "\x00") {
		return &RejectionError{Screen: "pattern", Reason: "null byte in source"}
	}
	return nil
}
