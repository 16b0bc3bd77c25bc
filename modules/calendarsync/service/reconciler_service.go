package service

import (
	"context"
	"sync"
	"time"

	"clinic-api/core/constants"
	"clinic-api/core/errors"
	"clinic-api/core/logger"
	apptEntity "clinic-api/modules/appointment/entity"
	apptRepo "clinic-api/modules/appointment/repository"
	"clinic-api/modules/calendarsync/dto"
	"clinic-api/modules/calendarsync/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReconcilerService pulls the remote calendar and folds its changes back into
// local appointments: remote time edits land locally, remote cancellations
// delete the local record, and remote-originated events become personal
// appointments. At most one pass runs per user at a time.
type ReconcilerService struct {
	repo     repository.SyncRepository
	appts    apptRepo.AppointmentRepository
	calendar CalendarAPI

	inflight sync.Map // uuid.UUID -> struct{}
}

func NewReconcilerService(repo repository.SyncRepository, appts apptRepo.AppointmentRepository, calendar CalendarAPI) *ReconcilerService {
	return &ReconcilerService{repo: repo, appts: appts, calendar: calendar}
}

// ReconcileWindow returns the active reconciliation window.
func ReconcileWindow(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, -constants.SyncWindowPastMonths, 0),
		now.AddDate(0, constants.SyncWindowFutureMonths, 0)
}

// ReconcileUser runs one reconciliation pass for a user. A pass already in
// flight for the same user makes this call a no-op. Any error aborts the pass;
// changes applied before the failure are kept, the next pass picks up the
// rest.
func (s *ReconcilerService) ReconcileUser(ctx context.Context, userID uuid.UUID) *errors.AppError {
	if _, loaded := s.inflight.LoadOrStore(userID, struct{}{}); loaded {
		logger.Info("Reconciliation already running, skipping", "user_id", userID)
		return nil
	}
	defer s.inflight.Delete(userID)

	conn, err := s.repo.GetConnection(ctx, userID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
	}
	if conn == nil {
		return errors.NewAppError(errors.ErrUnauthorized, "calendar not connected", nil)
	}

	timeMin, timeMax := ReconcileWindow(time.Now())

	remote, appErr := s.calendar.ListEvents(ctx, userID, timeMin, timeMax)
	if appErr != nil {
		return appErr
	}

	local, err := s.appts.ListForSync(ctx, userID, timeMin, timeMax)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to list appointments", err)
	}

	byID := make(map[string]*apptEntity.Appointment, len(local))
	byRemote := make(map[string]*apptEntity.Appointment, len(local))
	for i := range local {
		appt := &local[i]
		byID[appt.ID.String()] = appt
		if appt.RemoteEventID != nil && *appt.RemoteEventID != "" {
			byRemote[*appt.RemoteEventID] = appt
		}
	}

	for i := range remote {
		event := &remote[i]
		if appErr := s.reconcileEvent(ctx, userID, event, byID, byRemote); appErr != nil {
			return appErr
		}
	}

	return nil
}

func (s *ReconcilerService) reconcileEvent(ctx context.Context, userID uuid.UUID, event *dto.RemoteEvent,
	byID, byRemote map[string]*apptEntity.Appointment) *errors.AppError {

	meta := event.PrivateMeta()
	if owner, ok := meta[dto.PrivateKeyUserID]; ok && owner != userID.String() {
		return nil
	}

	// Match on the stamped appointment id first, then on the stored event id.
	var appt *apptEntity.Appointment
	if id, ok := meta[dto.PrivateKeyAppointmentID]; ok {
		appt = byID[id]
	}
	if appt == nil {
		appt = byRemote[event.ID]
	}

	if event.Status == dto.EventStatusCancelled {
		if appt == nil {
			return nil
		}
		if err := s.appts.Delete(ctx, appt.ID); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to delete appointment", err)
		}
		logger.Info("Remote cancellation applied", "user_id", userID, "appointment_id", appt.ID)
		return nil
	}

	if appt == nil {
		return s.adoptRemoteEvent(ctx, userID, event)
	}

	if appt.RemoteEventID == nil || *appt.RemoteEventID != event.ID {
		if err := s.appts.SetRemoteEventID(ctx, appt.ID, event.ID); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to link remote event", err)
		}
		eventID := event.ID
		appt.RemoteEventID = &eventID
	}

	return s.applyRemoteChanges(ctx, event, appt)
}

// adoptRemoteEvent creates a local appointment for an event that has no local
// match. Patient identity in the metadata bag makes it a patient appointment;
// without it the event is adopted as personal. All-day events have no clock
// times and are left alone.
func (s *ReconcilerService) adoptRemoteEvent(ctx context.Context, userID uuid.UUID, event *dto.RemoteEvent) *errors.AppError {
	date, startTime, endTime, ok := eventTimes(event)
	if !ok {
		return nil
	}

	eventID := event.ID
	appt := &apptEntity.Appointment{
		UserID:          userID,
		AppointmentType: apptEntity.TypePersonal,
		Date:            date,
		StartTime:       startTime,
		EndTime:         endTime,
		Duration:        clockMinutes(endTime) - clockMinutes(startTime),
		Status:          apptEntity.StatusScheduled,
		RemoteEventID:   &eventID,
	}

	meta := event.PrivateMeta()
	if name := meta[dto.PrivateKeyPatientName]; name != "" {
		appt.AppointmentType = apptEntity.TypePatient
		appt.PatientName = &name
	}
	if idStr := meta[dto.PrivateKeyPatientID]; idStr != "" {
		if patientID, err := uuid.Parse(idStr); err == nil {
			appt.AppointmentType = apptEntity.TypePatient
			appt.PatientID = &patientID
		}
	}

	if appt.AppointmentType == apptEntity.TypePersonal {
		// Patient descriptions are rendered locally and never pulled back in;
		// only personal events carry the remote text.
		title := event.Summary
		appt.Title = &title
		appt.Notes = event.Description
	}

	if _, err := s.appts.Create(ctx, appt); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to create appointment", err)
	}
	logger.Info("Remote event adopted", "user_id", userID, "event_id", event.ID)
	return nil
}

// applyRemoteChanges diffs the remote event against the local record and
// writes only what changed. Time edits apply to every appointment; summary
// and description edits apply to personal appointments only, since the
// patient-facing fields are rendered locally.
func (s *ReconcilerService) applyRemoteChanges(ctx context.Context, event *dto.RemoteEvent, appt *apptEntity.Appointment) *errors.AppError {
	patch := &apptRepo.AppointmentPatch{}

	date, startTime, endTime, ok := eventTimes(event)
	if ok {
		if !sameDay(date, appt.Date) {
			patch.Date = &date
		}
		if startTime != appt.StartTime {
			patch.StartTime = &startTime
		}
		if endTime != appt.EndTime {
			patch.EndTime = &endTime
		}
		if patch.StartTime != nil || patch.EndTime != nil {
			duration := clockMinutes(endTime) - clockMinutes(startTime)
			if duration != appt.Duration {
				patch.Duration = &duration
			}
		}
	}

	if appt.AppointmentType == apptEntity.TypePersonal {
		if appt.Title == nil || *appt.Title != event.Summary {
			summary := event.Summary
			patch.Title = &summary
		}
		if appt.Notes != event.Description {
			description := event.Description
			patch.Notes = &description
		}
	}

	if patch.IsZero() {
		return nil
	}

	if err := s.appts.Update(ctx, appt.ID, patch); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to apply remote changes", err)
	}
	logger.Info("Remote changes applied", "appointment_id", appt.ID, "event_id", event.ID)
	return nil
}

// HandleReconcileTask is the periodic worker entrypoint. Per-user failures are
// logged and skipped so one broken connection never stalls the rest.
func (s *ReconcilerService) HandleReconcileTask(ctx context.Context, _ *asynq.Task) error {
	conns, err := s.repo.ListConnections(ctx)
	if err != nil {
		logger.Error("Reconciler:HandleReconcileTask:ListConnections:Error:", err)
		return err
	}

	for _, conn := range conns {
		if appErr := s.ReconcileUser(ctx, conn.UserID); appErr != nil {
			logger.Error("Reconciler:HandleReconcileTask:ReconcileUser:Error", "error", appErr, "user_id", conn.UserID)
		}
	}

	if err := s.repo.CleanupExpiredOAuthStates(ctx); err != nil {
		logger.Error("Reconciler:HandleReconcileTask:CleanupStates:Error:", err)
	}

	return nil
}

// eventTimes extracts the wall-clock date and times of a timed event. The
// last return is false for all-day events and for events that cross midnight,
// which have no single-day clock representation.
func eventTimes(event *dto.RemoteEvent) (time.Time, string, string, bool) {
	if event.Start.DateTime == "" || event.End.DateTime == "" {
		return time.Time{}, "", "", false
	}
	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return time.Time{}, "", "", false
	}
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	if err != nil {
		return time.Time{}, "", "", false
	}
	if !sameDay(start, end) {
		return time.Time{}, "", "", false
	}

	date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return date, start.Format("15:04"), end.Format("15:04"), true
}

func clockMinutes(clock string) int {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
