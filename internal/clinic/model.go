// Package clinic holds the tenant directory: clinic records, their
// provisioned phone numbers and voice-vendor agent ids, and the appointment
// type catalog.
package clinic

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no clinic matches the lookup.
var ErrNotFound = errors.New("clinic: not found")

// Clinic is one tenant. Every other entity in the system is owned by exactly
// one clinic.
type Clinic struct {
	ID                 uuid.UUID
	Name               string
	Address            string
	City               string
	Country            string
	PhoneNumber        string
	GreetingTemplate   string
	DefaultLanguage    string
	SupportedLanguages []string
	VapiAssistantID    string
	RetellAgentID      string
	CreatedAt          time.Time
}

// Greeting returns the configured greeting or a sensible spoken default.
func (c *Clinic) Greeting() string {
	if c.GreetingTemplate != "" {
		return c.GreetingTemplate
	}
	return "Hello! Welcome to " + c.Name + ". How can I help you today?"
}

// AppointmentType is a bookable service with its own duration.
type AppointmentType struct {
	ID              uuid.UUID
	ClinicID        uuid.UUID
	Name            string
	DurationMinutes int
	Price           float64
	Active          bool
}
