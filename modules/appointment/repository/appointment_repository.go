package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"clinic-api/core/database"
	"clinic-api/modules/appointment/entity"

	"github.com/google/uuid"
)

// AppointmentPatch is a partial update; nil fields are left untouched.
type AppointmentPatch struct {
	Date        *time.Time
	StartTime   *string
	EndTime     *string
	Duration    *int
	Status      *string
	Title       *string
	Notes       *string
	Treatment   *string
	Fee         *float64
	Deposit     *float64
	PatientName *string
}

func (p *AppointmentPatch) IsZero() bool {
	return p.Date == nil && p.StartTime == nil && p.EndTime == nil &&
		p.Duration == nil && p.Status == nil && p.Title == nil &&
		p.Notes == nil && p.Treatment == nil && p.Fee == nil &&
		p.Deposit == nil && p.PatientName == nil
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *entity.Appointment) (*entity.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.Appointment, error)
	// ListForSync returns appointments inside the reconciliation window plus
	// any linked to a remote event, so deletions outside the window stay
	// matchable.
	ListForSync(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, patch *AppointmentPatch) error
	Delete(ctx context.Context, id uuid.UUID) error

	SetRemoteEventID(ctx context.Context, id uuid.UUID, remoteEventID string) error
	ClearRemoteEventID(ctx context.Context, id uuid.UUID) error
	FindByRemoteEventID(ctx context.Context, userID uuid.UUID, remoteEventID string) (*entity.Appointment, error)

	ListPayments(ctx context.Context, appointmentID uuid.UUID) ([]entity.Payment, error)
	AddPayment(ctx context.Context, payment *entity.Payment) (*entity.Payment, error)
}

type appointmentRepository struct {
	db database.Database
}

func NewAppointmentRepository(db database.Database) AppointmentRepository {
	return &appointmentRepository{db: db}
}

const appointmentColumns = `id, user_id, appointment_type, date, start_time, end_time, duration, status,
	title, notes, treatment, fee, deposit, patient_id, patient_name, remote_event_id, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appt *entity.Appointment) (*entity.Appointment, error) {
	query := `
		INSERT INTO appointments (user_id, appointment_type, date, start_time, end_time, duration, status,
			title, notes, treatment, fee, deposit, patient_id, patient_name, remote_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		appt.UserID, appt.AppointmentType, appt.Date, appt.StartTime, appt.EndTime, appt.Duration, appt.Status,
		appt.Title, appt.Notes, appt.Treatment, appt.Fee, appt.Deposit, appt.PatientID, appt.PatientName, appt.RemoteEventID,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appt entity.Appointment
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	err := r.db.GetContext(ctx, &appt, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	var appts []entity.Appointment
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date, start_time
	`
	if err := r.db.SelectContext(ctx, &appts, query, userID, from, to); err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *appointmentRepository) ListForSync(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	var appts []entity.Appointment
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE user_id = $1 AND ((date >= $2 AND date < $3) OR remote_event_id IS NOT NULL)
		ORDER BY date, start_time
	`
	if err := r.db.SelectContext(ctx, &appts, query, userID, from, to); err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *appointmentRepository) Update(ctx context.Context, id uuid.UUID, patch *AppointmentPatch) error {
	if patch == nil || patch.IsZero() {
		return nil
	}

	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Date != nil {
		add("date", *patch.Date)
	}
	if patch.StartTime != nil {
		add("start_time", *patch.StartTime)
	}
	if patch.EndTime != nil {
		add("end_time", *patch.EndTime)
	}
	if patch.Duration != nil {
		add("duration", *patch.Duration)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Treatment != nil {
		add("treatment", *patch.Treatment)
	}
	if patch.Fee != nil {
		add("fee", *patch.Fee)
	}
	if patch.Deposit != nil {
		add("deposit", *patch.Deposit)
	}
	if patch.PatientName != nil {
		add("patient_name", *patch.PatientName)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE appointments SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(sets, ", "), len(args))
	return r.db.ExecContext(ctx, query, args...)
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
}

func (r *appointmentRepository) SetRemoteEventID(ctx context.Context, id uuid.UUID, remoteEventID string) error {
	query := `UPDATE appointments SET remote_event_id = $1, updated_at = NOW() WHERE id = $2`
	return r.db.ExecContext(ctx, query, remoteEventID, id)
}

func (r *appointmentRepository) ClearRemoteEventID(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE appointments SET remote_event_id = NULL, updated_at = NOW() WHERE id = $1`
	return r.db.ExecContext(ctx, query, id)
}

func (r *appointmentRepository) FindByRemoteEventID(ctx context.Context, userID uuid.UUID, remoteEventID string) (*entity.Appointment, error) {
	var appt entity.Appointment
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE user_id = $1 AND remote_event_id = $2`
	err := r.db.GetContext(ctx, &appt, query, userID, remoteEventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepository) ListPayments(ctx context.Context, appointmentID uuid.UUID) ([]entity.Payment, error) {
	var payments []entity.Payment
	query := `
		SELECT id, appointment_id, amount, method, paid_at, created_at, updated_at
		FROM payments
		WHERE appointment_id = $1
		ORDER BY paid_at
	`
	if err := r.db.SelectContext(ctx, &payments, query, appointmentID); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *appointmentRepository) AddPayment(ctx context.Context, payment *entity.Payment) (*entity.Payment, error) {
	query := `
		INSERT INTO payments (appointment_id, amount, method, paid_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		payment.AppointmentID, payment.Amount, payment.Method, payment.PaidAt,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return payment, nil
}
