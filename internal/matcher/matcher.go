// Package matcher classifies typed input against a romaji transcription.
package matcher

import "strings"

// Verdict is the classification of one input attempt.
type Verdict int

const (
	// Neutral means nothing changed: same buffer, shrinking input, or only dropped characters.
	Neutral Verdict = iota
	// Accepted means the input extended the buffer and is still a prefix of the target.
	Accepted
	// Rejected means the input is not a prefix of the target.
	Rejected
	// Completed means the input equals the target.
	Completed
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Completed:
		return "completed"
	default:
		return "neutral"
	}
}

// Sanitize drops every character outside printable ASCII (0x20-0x7E).
func Sanitize(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if !printable(s[i]) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if printable(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func printable(c byte) bool {
	return c >= 0x20 && c <= 0x7e
}

// Evaluate classifies candidate against target given the current accepted buffer.
// Candidate is sanitized first.
func Evaluate(current, candidate, target string) Verdict {
	if target == "" {
		return Completed
	}
	val := Sanitize(candidate)
	if !strings.HasPrefix(target, val) {
		return Rejected
	}
	if val == target {
		return Completed
	}
	if len(val) > len(current) {
		return Accepted
	}
	return Neutral
}

// Extends reports whether the sanitized candidate is longer than current.
func Extends(current, candidate string) bool {
	return len(Sanitize(candidate)) > len(current)
}

// Revert returns the buffer to keep after a rejected candidate: the sanitized
// candidate minus its last character. When that is still not a prefix of target
// (several characters arrived at once) current is kept.
func Revert(current, candidate, target string) string {
	val := Sanitize(candidate)
	if val == "" {
		return current
	}
	val = val[:len(val)-1]
	if !strings.HasPrefix(target, val) {
		return current
	}
	return val
}
