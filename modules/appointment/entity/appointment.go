package entity

import (
	"time"

	"clinic-api/core/entity"

	"github.com/google/uuid"
)

// Appointment types
const (
	TypePatient  = "patient"
	TypePersonal = "personal"
)

// Appointment statuses
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Appointment is a clinic appointment or a personal calendar block owned by
// one practitioner. RemoteEventID links it to the external calendar event and
// is empty until the first successful outbound sync or inbound match.
type Appointment struct {
	entity.BaseEntity
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	AppointmentType string     `db:"appointment_type" json:"appointment_type"`
	Date            time.Time  `db:"date" json:"date"`
	StartTime       string     `db:"start_time" json:"start_time"` // "15:04"
	EndTime         string     `db:"end_time" json:"end_time"`
	Duration        int        `db:"duration" json:"duration"` // minutes, end - start
	Status          string     `db:"status" json:"status"`
	Title           *string    `db:"title" json:"title,omitempty"`
	Notes           string     `db:"notes" json:"notes"`
	Treatment       string     `db:"treatment" json:"treatment"`
	Fee             float64    `db:"fee" json:"fee"`
	Deposit         float64    `db:"deposit" json:"deposit"`
	PatientID       *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	PatientName     *string    `db:"patient_name" json:"patient_name,omitempty"`
	RemoteEventID   *string    `db:"remote_event_id" json:"remote_event_id,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// StartsAt combines Date and StartTime into a wall-clock instant in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	clock, err := time.Parse("15:04", a.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// EndsAt combines Date and EndTime into a wall-clock instant in loc.
func (a *Appointment) EndsAt(loc *time.Location) (time.Time, error) {
	clock, err := time.Parse("15:04", a.EndTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc), nil
}
