package api

import (
	"regexp"
	"strings"

	"github.com/storyforge/orchestrator/internal/apperr"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,50}$`)

// validateID enforces the ID shape shared by every path/body
// identifier: projects, characters, scenes, jobs.
func validateID(field, value string) error {
	if !idPattern.MatchString(value) {
		return apperr.New(apperr.BadInput, field+" must match ^[a-zA-Z0-9-]{1,50}$")
	}
	return nil
}

// sanitizePrompt strips NUL bytes and non-printable control characters
// (keeping \n and \t) and enforces the 1000-char ceiling.
func sanitizePrompt(field, s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == 0 {
			continue
		}
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) > 1000 {
		return "", apperr.New(apperr.BadInput, field+" exceeds 1000 characters")
	}
	return out, nil
}

// validateDimension rejects a width/height outside [64, 2048] and rounds
// any in-range value down to the nearest multiple of 64.
func validateDimension(field string, v int) (int, error) {
	if v < 64 || v > 2048 {
		return 0, apperr.New(apperr.BadInput, field+" must be between 64 and 2048")
	}
	return (v / 64) * 64, nil
}

// validateDuration enforces the [1, 300] second range spec'd for any
// endpoint that accepts an explicit duration.
func validateDuration(seconds int) error {
	if seconds < 1 || seconds > 300 {
		return apperr.New(apperr.BadInput, "duration_seconds must be between 1 and 300")
	}
	return nil
}
