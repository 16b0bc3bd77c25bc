package service

import (
	"context"
	"time"

	"clinic-api/core/errors"
	apptEntity "clinic-api/modules/appointment/entity"
	apptRepo "clinic-api/modules/appointment/repository"
	"clinic-api/modules/calendarsync/dto"

	"github.com/google/uuid"
)

// SyncService is the request-facing surface of the sync engine: it resolves
// the appointment referenced by an explicit sync request and hands it to the
// outbound push, and exposes the raw remote window for pulls.
type SyncService struct {
	outbound *OutboundService
	appts    apptRepo.AppointmentRepository
	calendar CalendarAPI
}

func NewSyncService(outbound *OutboundService, appts apptRepo.AppointmentRepository, calendar CalendarAPI) *SyncService {
	return &SyncService{outbound: outbound, appts: appts, calendar: calendar}
}

// HandleSyncRequest pushes one appointment change. The stored record is
// authoritative when it still exists; the request payload only stands in for
// it on delete, where the local row is already gone.
func (s *SyncService) HandleSyncRequest(ctx context.Context, userID uuid.UUID, req *dto.SyncRequest) (*dto.SyncResponse, *errors.AppError) {
	apptID, err := uuid.Parse(req.Appointment.ID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidRequestData, "invalid appointment id", err)
	}

	stored, err := s.appts.GetByID(ctx, apptID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load appointment", err)
	}

	var appt *apptEntity.Appointment
	if stored != nil {
		if stored.UserID != userID {
			return nil, errors.NewAppError(errors.ErrForbidden, "appointment belongs to another user", nil)
		}
		appt = stored
	} else {
		if req.Action != dto.SyncActionDelete {
			return nil, errors.NewAppError(errors.ErrNotFound, "appointment not found", nil)
		}
		appt, err = appointmentFromPayload(apptID, userID, &req.Appointment)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidRequestData, "invalid appointment payload", err)
		}
	}

	eventID, appErr := s.outbound.Sync(ctx, userID, appt, req.Action, req.OfficeColorID)
	if appErr != nil {
		return nil, appErr
	}

	resp := &dto.SyncResponse{Success: true}
	if eventID != "" {
		resp.EventID = &eventID
	} else if appt.RemoteEventID != nil && req.Action != dto.SyncActionDelete {
		resp.EventID = appt.RemoteEventID
	}
	return resp, nil
}

// Pull fetches the remote events in a window without mutating anything.
// Missing bounds default to the reconciliation window.
func (s *SyncService) Pull(ctx context.Context, userID uuid.UUID, req *dto.PullRequest) (*dto.PullResponse, *errors.AppError) {
	timeMin, timeMax := ReconcileWindow(time.Now())

	if req.TimeMin != "" {
		parsed, err := time.Parse(time.RFC3339, req.TimeMin)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidRequestData, "invalid time_min", err)
		}
		timeMin = parsed
	}
	if req.TimeMax != "" {
		parsed, err := time.Parse(time.RFC3339, req.TimeMax)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidRequestData, "invalid time_max", err)
		}
		timeMax = parsed
	}

	items, appErr := s.calendar.ListEvents(ctx, userID, timeMin, timeMax)
	if appErr != nil {
		return nil, appErr
	}
	if items == nil {
		items = []dto.RemoteEvent{}
	}
	return &dto.PullResponse{Items: items}, nil
}

func appointmentFromPayload(id, userID uuid.UUID, payload *dto.SyncAppointment) (*apptEntity.Appointment, error) {
	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		return nil, err
	}

	appt := &apptEntity.Appointment{
		UserID:          userID,
		AppointmentType: payload.AppointmentType,
		Date:            date,
		StartTime:       payload.StartTime,
		EndTime:         payload.EndTime,
		Status:          payload.Status,
		Title:           payload.Title,
		Notes:           payload.Notes,
		Treatment:       payload.Treatment,
		Fee:             payload.Fee,
		Deposit:         payload.Deposit,
		PatientName:     payload.PatientName,
		RemoteEventID:   payload.RemoteEventID,
	}
	appt.ID = id

	if payload.PatientID != nil {
		patientID, err := uuid.Parse(*payload.PatientID)
		if err != nil {
			return nil, err
		}
		appt.PatientID = &patientID
	}

	return appt, nil
}
