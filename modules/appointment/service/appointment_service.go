package service

import (
	"context"
	"time"

	"clinic-api/core/constants"
	"clinic-api/core/errors"
	"clinic-api/core/logger"
	"clinic-api/modules/appointment/dto"
	"clinic-api/modules/appointment/entity"
	"clinic-api/modules/appointment/repository"
	syncdto "clinic-api/modules/calendarsync/dto"

	"github.com/google/uuid"
)

// CalendarSyncer propagates a single appointment mutation to the external
// calendar. Implemented by the calendarsync outbound service.
type CalendarSyncer interface {
	Sync(ctx context.Context, userID uuid.UUID, appt *entity.Appointment, action string, officeColorID string) (string, *errors.AppError)
}

type AppointmentService interface {
	Create(ctx context.Context, userID uuid.UUID, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, *errors.AppError)
	Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*dto.AppointmentResponse, *errors.AppError)
	List(ctx context.Context, userID uuid.UUID, from, to time.Time) (*dto.AppointmentListResponse, *errors.AppError)
	Update(ctx context.Context, userID uuid.UUID, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, *errors.AppError)
	Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*dto.DeleteAppointmentResponse, *errors.AppError)
	AddPayment(ctx context.Context, userID uuid.UUID, appointmentID uuid.UUID, req *dto.AddPaymentRequest) (*entity.Payment, *errors.AppError)
}

type appointmentService struct {
	repo   repository.AppointmentRepository
	syncer CalendarSyncer
}

func NewAppointmentService(repo repository.AppointmentRepository, syncer CalendarSyncer) AppointmentService {
	return &appointmentService{repo: repo, syncer: syncer}
}

func (s *appointmentService) Create(ctx context.Context, userID uuid.UUID, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	appt, appErr := s.buildAppointment(userID, req)
	if appErr != nil {
		return nil, appErr
	}

	created, err := s.repo.Create(ctx, appt)
	if err != nil {
		logger.Error("AppointmentService:Create:Repo:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create appointment", err)
	}

	resp := toResponse(created)

	// Local write is committed; a sync failure is reported, never rolled back.
	if s.syncer != nil {
		if _, syncErr := s.syncer.Sync(ctx, userID, created, syncdto.SyncActionCreate, req.OfficeColorID); syncErr != nil {
			logger.Error("AppointmentService:Create:Sync:Error", "error", syncErr, "appointment_id", created.ID)
			resp.SyncError = syncErr.Message
		} else {
			resp.RemoteEventID = created.RemoteEventID
		}
	}

	return resp, nil
}

func (s *appointmentService) Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*dto.AppointmentResponse, *errors.AppError) {
	appt, appErr := s.getOwned(ctx, userID, id)
	if appErr != nil {
		return nil, appErr
	}
	return toResponse(appt), nil
}

func (s *appointmentService) List(ctx context.Context, userID uuid.UUID, from, to time.Time) (*dto.AppointmentListResponse, *errors.AppError) {
	appts, err := s.repo.ListByUser(ctx, userID, from, to)
	if err != nil {
		logger.Error("AppointmentService:List:Repo:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list appointments", err)
	}

	resp := &dto.AppointmentListResponse{Appointments: []dto.AppointmentResponse{}}
	for i := range appts {
		resp.Appointments = append(resp.Appointments, *toResponse(&appts[i]))
	}
	return resp, nil
}

func (s *appointmentService) Update(ctx context.Context, userID uuid.UUID, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	appt, appErr := s.getOwned(ctx, userID, id)
	if appErr != nil {
		return nil, appErr
	}

	patch, appErr := buildPatch(appt, req)
	if appErr != nil {
		return nil, appErr
	}

	if !patch.IsZero() {
		if err := s.repo.Update(ctx, id, patch); err != nil {
			logger.Error("AppointmentService:Update:Repo:Error:", err)
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to update appointment", err)
		}
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil || updated == nil {
		logger.Error("AppointmentService:Update:Reload:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to reload appointment", err)
	}

	resp := toResponse(updated)

	if s.syncer != nil {
		action := syncdto.SyncActionUpdate
		if updated.RemoteEventID == nil {
			action = syncdto.SyncActionCreate
		}
		if _, syncErr := s.syncer.Sync(ctx, userID, updated, action, req.OfficeColorID); syncErr != nil {
			logger.Error("AppointmentService:Update:Sync:Error", "error", syncErr, "appointment_id", id)
			resp.SyncError = syncErr.Message
		} else {
			resp.RemoteEventID = updated.RemoteEventID
		}
	}

	return resp, nil
}

func (s *appointmentService) Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*dto.DeleteAppointmentResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	appt, appErr := s.getOwned(ctx, userID, id)
	if appErr != nil {
		return nil, appErr
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		logger.Error("AppointmentService:Delete:Repo:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to delete appointment", err)
	}

	resp := &dto.DeleteAppointmentResponse{Deleted: true}

	if s.syncer != nil && appt.RemoteEventID != nil {
		if _, syncErr := s.syncer.Sync(ctx, userID, appt, syncdto.SyncActionDelete, ""); syncErr != nil {
			logger.Error("AppointmentService:Delete:Sync:Error", "error", syncErr, "appointment_id", id)
			resp.SyncError = syncErr.Message
		}
	}

	return resp, nil
}

func (s *appointmentService) AddPayment(ctx context.Context, userID uuid.UUID, appointmentID uuid.UUID, req *dto.AddPaymentRequest) (*entity.Payment, *errors.AppError) {
	appt, appErr := s.getOwned(ctx, userID, appointmentID)
	if appErr != nil {
		return nil, appErr
	}
	if appt.AppointmentType != entity.TypePatient {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "payments can only be recorded on patient appointments", nil)
	}
	if req.Amount <= 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "payment amount must be positive", nil)
	}

	paidAt := time.Now()
	if req.PaidAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid paid_at format", err)
		}
		paidAt = parsed
	}

	payment := &entity.Payment{
		AppointmentID: appointmentID,
		Amount:        req.Amount,
		Method:        req.Method,
		PaidAt:        paidAt,
	}
	created, err := s.repo.AddPayment(ctx, payment)
	if err != nil {
		logger.Error("AppointmentService:AddPayment:Repo:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to record payment", err)
	}

	// Keep the remote description's payment lines current.
	if s.syncer != nil && appt.RemoteEventID != nil {
		if _, syncErr := s.syncer.Sync(ctx, userID, appt, syncdto.SyncActionUpdate, ""); syncErr != nil {
			logger.Error("AppointmentService:AddPayment:Sync:Error", "error", syncErr, "appointment_id", appointmentID)
		}
	}

	return created, nil
}

func (s *appointmentService) getOwned(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*entity.Appointment, *errors.AppError) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logger.Error("AppointmentService:GetOwned:Repo:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to get appointment", err)
	}
	if appt == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "appointment not found", nil)
	}
	if appt.UserID != userID {
		return nil, errors.NewAppError(errors.ErrForbidden, "appointment belongs to another user", nil)
	}
	return appt, nil
}

func (s *appointmentService) buildAppointment(userID uuid.UUID, req *dto.CreateAppointmentRequest) (*entity.Appointment, *errors.AppError) {
	if req.AppointmentType != entity.TypePatient && req.AppointmentType != entity.TypePersonal {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid appointment type", nil)
	}
	if req.AppointmentType == entity.TypePatient && (req.PatientName == nil || *req.PatientName == "") {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "patient appointments require a patient name", nil)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid date format", err)
	}
	duration, appErr := durationMinutes(req.StartTime, req.EndTime)
	if appErr != nil {
		return nil, appErr
	}

	status := req.Status
	if status == "" {
		status = entity.StatusScheduled
	}

	var patientID *uuid.UUID
	if req.PatientID != nil && *req.PatientID != "" {
		parsed, err := uuid.Parse(*req.PatientID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid patient id", err)
		}
		patientID = &parsed
	}

	return &entity.Appointment{
		UserID:          userID,
		AppointmentType: req.AppointmentType,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Duration:        duration,
		Status:          status,
		Title:           req.Title,
		Notes:           req.Notes,
		Treatment:       req.Treatment,
		Fee:             req.Fee,
		Deposit:         req.Deposit,
		PatientID:       patientID,
		PatientName:     req.PatientName,
	}, nil
}

func buildPatch(appt *entity.Appointment, req *dto.UpdateAppointmentRequest) (*repository.AppointmentPatch, *errors.AppError) {
	patch := &repository.AppointmentPatch{
		Status:      req.Status,
		Title:       req.Title,
		Notes:       req.Notes,
		Treatment:   req.Treatment,
		Fee:         req.Fee,
		Deposit:     req.Deposit,
		PatientName: req.PatientName,
	}

	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid date format", err)
		}
		patch.Date = &date
	}

	start := appt.StartTime
	end := appt.EndTime
	if req.StartTime != nil {
		start = *req.StartTime
		patch.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
		patch.EndTime = req.EndTime
	}
	if req.StartTime != nil || req.EndTime != nil {
		duration, appErr := durationMinutes(start, end)
		if appErr != nil {
			return nil, appErr
		}
		patch.Duration = &duration
	}

	return patch, nil
}

// durationMinutes enforces the invariant duration = end - start.
func durationMinutes(start, end string) (int, *errors.AppError) {
	startClock, err := time.Parse("15:04", start)
	if err != nil {
		return 0, errors.NewAppError(errors.ErrInvalidInput, "invalid start_time format", err)
	}
	endClock, err := time.Parse("15:04", end)
	if err != nil {
		return 0, errors.NewAppError(errors.ErrInvalidInput, "invalid end_time format", err)
	}
	minutes := int(endClock.Sub(startClock).Minutes())
	if minutes <= 0 {
		return 0, errors.NewAppError(errors.ErrInvalidInput, "end_time must be after start_time", nil)
	}
	return minutes, nil
}

func toResponse(appt *entity.Appointment) *dto.AppointmentResponse {
	resp := &dto.AppointmentResponse{
		ID:              appt.ID.String(),
		UserID:          appt.UserID.String(),
		AppointmentType: appt.AppointmentType,
		Date:            appt.Date.Format("2006-01-02"),
		StartTime:       appt.StartTime,
		EndTime:         appt.EndTime,
		Duration:        appt.Duration,
		Status:          appt.Status,
		Title:           appt.Title,
		Notes:           appt.Notes,
		Treatment:       appt.Treatment,
		Fee:             appt.Fee,
		Deposit:         appt.Deposit,
		PatientName:     appt.PatientName,
		RemoteEventID:   appt.RemoteEventID,
	}
	if appt.PatientID != nil {
		id := appt.PatientID.String()
		resp.PatientID = &id
	}
	return resp
}
