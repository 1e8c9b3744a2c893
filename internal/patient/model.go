// Package patient holds the per-clinic patient registry. Identity is the
// (clinic_id, phone) pair: a caller's first contact creates the record, every
// later contact reuses it.
package patient

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no patient matches the (clinic, phone) pair.
var ErrNotFound = errors.New("patient: not found")

// Patient is one person known to a clinic.
type Patient struct {
	ID                uuid.UUID
	ClinicID          uuid.UUID
	Phone             string
	Name              string
	Email             string
	PreferredLanguage string
	PrefersWhatsApp   bool
	CreatedAt         time.Time
}

// NormalizePhone reduces a spoken or vendor-formatted number to "+digits".
// Voice transcripts arrive with spaces, dashes and parentheses; the registry
// must treat "+234 801 234 5678" and "2348012345678" as the same patient.
func NormalizePhone(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	return "+" + digits
}
