package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/availability"
	"github.com/curavoice/voice-backend/internal/booking"
	"github.com/curavoice/voice-backend/internal/calllog"
	"github.com/curavoice/voice-backend/internal/clinic"
	"github.com/curavoice/voice-backend/internal/doctor"
)

type fakeBooker struct {
	mu         sync.Mutex
	bookParams *booking.BookParams
	bookResult booking.Result
	bookErr    error

	cancelled    *uuid.UUID
	cancelResult booking.Result

	rescheduled      *uuid.UUID
	rescheduleResult booking.Result

	upcoming booking.UpcomingResult
}

func (f *fakeBooker) Book(_ context.Context, p booking.BookParams) (booking.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookParams = &p
	return f.bookResult, f.bookErr
}

func (f *fakeBooker) Cancel(_ context.Context, _ uuid.UUID, id uuid.UUID, _ string) (booking.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = &id
	return f.cancelResult, nil
}

func (f *fakeBooker) Reschedule(_ context.Context, _ uuid.UUID, id uuid.UUID, _, _ string) (booking.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled = &id
	return f.rescheduleResult, nil
}

func (f *fakeBooker) ListUpcoming(_ context.Context, _ uuid.UUID, _ string) (booking.UpcomingResult, error) {
	return f.upcoming, nil
}

type fakeChecker struct {
	result availability.Result
	err    error
}

func (f *fakeChecker) CheckAvailability(_ context.Context, _, _ uuid.UUID, _ time.Time) (availability.Result, error) {
	return f.result, f.err
}

type fakeDoctors struct {
	docs []doctor.Doctor
	err  error
}

func (f *fakeDoctors) ListActive(_ context.Context, _ uuid.UUID) ([]doctor.Doctor, error) {
	return f.docs, f.err
}

type fakeClinics struct {
	clinic *clinic.Clinic
	types  []clinic.AppointmentType
	err    error
}

func (f *fakeClinics) Get(_ context.Context, _ uuid.UUID) (*clinic.Clinic, error) {
	return f.clinic, f.err
}

func (f *fakeClinics) GetByVapiAssistant(_ context.Context, _ string) (*clinic.Clinic, error) {
	return f.clinic, f.err
}

func (f *fakeClinics) GetByRetellAgent(_ context.Context, _ string) (*clinic.Clinic, error) {
	return f.clinic, f.err
}

func (f *fakeClinics) GetByPhoneNumber(_ context.Context, _ string) (*clinic.Clinic, error) {
	return f.clinic, f.err
}

func (f *fakeClinics) ListAppointmentTypes(_ context.Context, _ uuid.UUID) ([]clinic.AppointmentType, error) {
	return f.types, f.err
}

type fakeCallLogger struct {
	mu   sync.Mutex
	logs []calllog.CallLog
	err  error
}

func (f *fakeCallLogger) Insert(_ context.Context, log calllog.CallLog) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.logs = append(f.logs, log)
	return uuid.New(), nil
}

func errClinicNotFound() error {
	return clinic.ErrNotFound
}

func testClinic() *clinic.Clinic {
	return &clinic.Clinic{
		ID:          uuid.New(),
		Name:        "Sunrise Clinic",
		PhoneNumber: "+2341234567",
	}
}
