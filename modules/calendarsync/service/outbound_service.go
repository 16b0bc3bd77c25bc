package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clinic-api/core/constants"
	"clinic-api/core/errors"
	"clinic-api/core/logger"
	apptEntity "clinic-api/modules/appointment/entity"
	apptRepo "clinic-api/modules/appointment/repository"
	"clinic-api/modules/calendarsync/dto"
	"clinic-api/modules/calendarsync/repository"

	"github.com/google/uuid"
)

// OutboundService pushes local appointment changes to the remote calendar.
// Local state is always committed before the remote call, so a remote failure
// never rolls anything back; callers surface it as a sync warning instead.
type OutboundService struct {
	repo     repository.SyncRepository
	appts    apptRepo.AppointmentRepository
	calendar CalendarAPI
}

func NewOutboundService(repo repository.SyncRepository, appts apptRepo.AppointmentRepository, calendar CalendarAPI) *OutboundService {
	return &OutboundService{repo: repo, appts: appts, calendar: calendar}
}

// Sync applies a single outbound action for one appointment. On create, the
// returned event id is also written back to the appointment (both the row and
// the in-memory struct). Delete is idempotent: a missing link or a remote 404
// both count as success.
func (s *OutboundService) Sync(ctx context.Context, userID uuid.UUID, appt *apptEntity.Appointment, action string, officeColorID string) (string, *errors.AppError) {
	conn, err := s.repo.GetConnection(ctx, userID)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
	}
	if conn == nil {
		return "", errors.NewAppError(errors.ErrUnauthorized, "calendar not connected", nil)
	}

	switch action {
	case dto.SyncActionCreate:
		return s.createEvent(ctx, userID, appt, officeColorID)
	case dto.SyncActionUpdate:
		return s.updateEvent(ctx, userID, appt, officeColorID)
	case dto.SyncActionDelete:
		return "", s.deleteEvent(ctx, userID, appt)
	default:
		return "", errors.NewAppError(errors.ErrInvalidArgument, fmt.Sprintf("unknown sync action: %s", action), nil)
	}
}

func (s *OutboundService) createEvent(ctx context.Context, userID uuid.UUID, appt *apptEntity.Appointment, officeColorID string) (string, *errors.AppError) {
	draft, appErr := s.buildDraft(ctx, userID, appt, officeColorID)
	if appErr != nil {
		return "", appErr
	}

	eventID, appErr := s.calendar.CreateEvent(ctx, userID, draft)
	if appErr != nil {
		return "", appErr
	}

	if err := s.appts.SetRemoteEventID(ctx, appt.ID, eventID); err != nil {
		// The remote event exists; the next reconciliation pass re-links it
		// through the metadata bag.
		logger.Error("OutboundService:CreateEvent:SetRemoteEventID:Error", "error", err, "appointment_id", appt.ID)
	}
	appt.RemoteEventID = &eventID

	return eventID, nil
}

func (s *OutboundService) updateEvent(ctx context.Context, userID uuid.UUID, appt *apptEntity.Appointment, officeColorID string) (string, *errors.AppError) {
	if appt.RemoteEventID == nil || *appt.RemoteEventID == "" {
		return "", errors.NewAppError(errors.ErrInvalidState, "appointment has no linked calendar event", nil)
	}

	draft, appErr := s.buildDraft(ctx, userID, appt, officeColorID)
	if appErr != nil {
		return "", appErr
	}

	return s.calendar.UpdateEvent(ctx, userID, *appt.RemoteEventID, draft)
}

func (s *OutboundService) deleteEvent(ctx context.Context, userID uuid.UUID, appt *apptEntity.Appointment) *errors.AppError {
	if appt.RemoteEventID == nil || *appt.RemoteEventID == "" {
		return nil
	}

	appErr := s.calendar.DeleteEvent(ctx, userID, *appt.RemoteEventID)
	if appErr != nil && appErr.Code != errors.ErrNotFound {
		return appErr
	}

	// The local row may already be gone when the delete flow runs; clearing
	// the link on a missing row is a no-op.
	if err := s.appts.ClearRemoteEventID(ctx, appt.ID); err != nil {
		logger.Error("OutboundService:DeleteEvent:ClearRemoteEventID:Error", "error", err, "appointment_id", appt.ID)
	}
	appt.RemoteEventID = nil

	return nil
}

// buildDraft renders an appointment as a remote event payload. Times are
// wall-clock strings pinned to the clinic timezone; the metadata bag carries
// the identifiers reconciliation matches on.
func (s *OutboundService) buildDraft(ctx context.Context, userID uuid.UUID, appt *apptEntity.Appointment, officeColorID string) (*dto.EventDraft, *errors.AppError) {
	datePart := appt.Date.Format("2006-01-02")

	private := map[string]string{
		dto.PrivateKeyAppointmentID:   appt.ID.String(),
		dto.PrivateKeyUserID:          userID.String(),
		dto.PrivateKeyAppointmentType: appt.AppointmentType,
	}

	var summary, description string
	if appt.AppointmentType == apptEntity.TypePatient {
		name := "Patient"
		if appt.PatientName != nil && *appt.PatientName != "" {
			name = *appt.PatientName
			private[dto.PrivateKeyPatientName] = name
		}
		if appt.PatientID != nil {
			private[dto.PrivateKeyPatientID] = appt.PatientID.String()
		}
		summary = constants.CalendarSummaryGlyph + name

		payments, err := s.appts.ListPayments(ctx, appt.ID)
		if err != nil {
			logger.Error("OutboundService:BuildDraft:ListPayments:Error", "error", err, "appointment_id", appt.ID)
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load payments", err)
		}
		description = composePatientDescription(appt, payments)
	} else {
		summary = "Personal"
		if appt.Title != nil && *appt.Title != "" {
			summary = *appt.Title
		}
		description = appt.Notes
	}

	return &dto.EventDraft{
		Summary:     summary,
		Description: description,
		Start: dto.EventDateTime{
			DateTime: datePart + "T" + appt.StartTime + ":00",
			TimeZone: constants.CalendarTimezone,
		},
		End: dto.EventDateTime{
			DateTime: datePart + "T" + appt.EndTime + ":00",
			TimeZone: constants.CalendarTimezone,
		},
		ColorID:            officeColorID,
		ExtendedProperties: &dto.EventExtendedProperties{Private: private},
	}, nil
}

// composePatientDescription renders the billing summary pushed to the remote
// event. It flows one way only; remote edits to it are never read back.
func composePatientDescription(appt *apptEntity.Appointment, payments []apptEntity.Payment) string {
	var lines []string

	if appt.Treatment != "" {
		lines = append(lines, "Treatment: "+appt.Treatment)
	}
	if appt.Fee > 0 {
		lines = append(lines, "Fee: "+formatMoney(appt.Fee))
	}
	if appt.Deposit > 0 {
		lines = append(lines, "Deposit: "+formatMoney(appt.Deposit))
	}

	var paid float64
	for _, p := range payments {
		paid += p.Amount
	}
	if paid > 0 {
		lines = append(lines, "Received: "+formatMoney(paid))
	}

	if appt.Fee > 0 {
		balance := appt.Fee - appt.Deposit - paid
		if balance > 0 {
			lines = append(lines, "Balance: "+formatMoney(balance))
		} else {
			lines = append(lines, "Paid in full")
		}
	}

	if appt.Notes != "" {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, appt.Notes)
	}

	return strings.Join(lines, "\n")
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
