// Package tenancy carries the clinic identity through request contexts.
// Every store query is additionally clinic-scoped in SQL; the context value
// exists for logging and handler plumbing, never as the sole access check.
package tenancy

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const clinicKey ctxKey = "curavoice.clinic_id"

// WithClinicID stores the clinic id in the context.
func WithClinicID(ctx context.Context, clinicID uuid.UUID) context.Context {
	return context.WithValue(ctx, clinicKey, clinicID)
}

// ClinicIDFromContext extracts the clinic id if present.
func ClinicIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(clinicKey)
	if val == nil {
		return uuid.Nil, false
	}
	clinicID, ok := val.(uuid.UUID)
	return clinicID, ok && clinicID != uuid.Nil
}
