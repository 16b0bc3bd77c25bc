package entity

import (
	"time"

	"clinic-api/core/entity"

	"github.com/google/uuid"
)

// Payment is a recorded payment against a patient appointment.
type Payment struct {
	entity.BaseEntity
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Amount        float64   `db:"amount" json:"amount"`
	Method        string    `db:"method" json:"method"`
	PaidAt        time.Time `db:"paid_at" json:"paid_at"`
}

func (Payment) TableName() string {
	return "payments"
}
