package service

import (
	"context"
	"testing"
	"time"

	"clinic-api/core/errors"
	"clinic-api/modules/appointment/dto"
	"clinic-api/modules/appointment/entity"
	"clinic-api/modules/appointment/repository"
	syncdto "clinic-api/modules/calendarsync/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	appointments map[uuid.UUID]*entity.Appointment
	payments     map[uuid.UUID][]entity.Payment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		appointments: make(map[uuid.UUID]*entity.Appointment),
		payments:     make(map[uuid.UUID][]entity.Payment),
	}
}

func (r *memoryRepo) Create(_ context.Context, appt *entity.Appointment) (*entity.Appointment, error) {
	appt.ID = uuid.New()
	r.appointments[appt.ID] = appt
	return appt, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Appointment, error) {
	appt, ok := r.appointments[id]
	if !ok {
		return nil, nil
	}
	copied := *appt
	return &copied, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ time.Time) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, appt := range r.appointments {
		if appt.UserID == userID {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListForSync(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	return r.ListByUser(ctx, userID, from, to)
}

func (r *memoryRepo) Update(_ context.Context, id uuid.UUID, patch *repository.AppointmentPatch) error {
	appt := r.appointments[id]
	if patch.Status != nil {
		appt.Status = *patch.Status
	}
	if patch.StartTime != nil {
		appt.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		appt.EndTime = *patch.EndTime
	}
	if patch.Duration != nil {
		appt.Duration = *patch.Duration
	}
	if patch.Notes != nil {
		appt.Notes = *patch.Notes
	}
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.appointments, id)
	return nil
}

func (r *memoryRepo) SetRemoteEventID(_ context.Context, id uuid.UUID, remoteEventID string) error {
	if appt, ok := r.appointments[id]; ok {
		appt.RemoteEventID = &remoteEventID
	}
	return nil
}

func (r *memoryRepo) ClearRemoteEventID(_ context.Context, id uuid.UUID) error {
	if appt, ok := r.appointments[id]; ok {
		appt.RemoteEventID = nil
	}
	return nil
}

func (r *memoryRepo) FindByRemoteEventID(_ context.Context, userID uuid.UUID, remoteEventID string) (*entity.Appointment, error) {
	for _, appt := range r.appointments {
		if appt.UserID == userID && appt.RemoteEventID != nil && *appt.RemoteEventID == remoteEventID {
			return appt, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) ListPayments(_ context.Context, appointmentID uuid.UUID) ([]entity.Payment, error) {
	return r.payments[appointmentID], nil
}

func (r *memoryRepo) AddPayment(_ context.Context, payment *entity.Payment) (*entity.Payment, error) {
	payment.ID = uuid.New()
	r.payments[payment.AppointmentID] = append(r.payments[payment.AppointmentID], *payment)
	return payment, nil
}

type recordingSyncer struct {
	calls []string
	err   *errors.AppError
}

func (s *recordingSyncer) Sync(_ context.Context, _ uuid.UUID, appt *entity.Appointment, action string, _ string) (string, *errors.AppError) {
	s.calls = append(s.calls, action)
	if s.err != nil {
		return "", s.err
	}
	if action == syncdto.SyncActionCreate {
		eventID := "evt-1"
		appt.RemoteEventID = &eventID
		return eventID, nil
	}
	return "", nil
}

func createRequest() *dto.CreateAppointmentRequest {
	name := "Nguyen Van A"
	return &dto.CreateAppointmentRequest{
		AppointmentType: entity.TypePatient,
		Date:            "2026-09-10",
		StartTime:       "09:00",
		EndTime:         "09:45",
		Treatment:       "Cleaning",
		Fee:             500,
		PatientName:     &name,
	}
}

func TestCreateSyncsAndReturnsRemoteEventID(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &recordingSyncer{}
	svc := NewAppointmentService(repo, syncer)
	userID := uuid.New()

	resp, appErr := svc.Create(context.Background(), userID, createRequest())
	require.Nil(t, appErr)
	assert.Equal(t, []string{syncdto.SyncActionCreate}, syncer.calls)
	require.NotNil(t, resp.RemoteEventID)
	assert.Equal(t, "evt-1", *resp.RemoteEventID)
	assert.Equal(t, 45, resp.Duration)
	assert.Empty(t, resp.SyncError)
}

func TestCreateKeepsLocalRecordWhenSyncFails(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &recordingSyncer{err: errors.NewAppError(errors.ErrTransient, "calendar provider unreachable", nil)}
	svc := NewAppointmentService(repo, syncer)
	userID := uuid.New()

	resp, appErr := svc.Create(context.Background(), userID, createRequest())
	require.Nil(t, appErr, "a sync failure must not fail the create")
	assert.NotEmpty(t, resp.SyncError)
	assert.Nil(t, resp.RemoteEventID)
	assert.Len(t, repo.appointments, 1, "local write survives the sync failure")
}

func TestCreateRejectsInvertedTimes(t *testing.T) {
	svc := NewAppointmentService(newMemoryRepo(), &recordingSyncer{})
	req := createRequest()
	req.StartTime = "10:00"
	req.EndTime = "09:00"

	_, appErr := svc.Create(context.Background(), uuid.New(), req)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestUpdateFallsBackToCreateWhenUnlinked(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &recordingSyncer{}
	svc := NewAppointmentService(repo, syncer)
	userID := uuid.New()

	// Created while sync was failing, so no remote link yet.
	failing := &recordingSyncer{err: errors.NewAppError(errors.ErrTransient, "down", nil)}
	created, appErr := NewAppointmentService(repo, failing).Create(context.Background(), userID, createRequest())
	require.Nil(t, appErr)

	id := uuid.MustParse(created.ID)
	notes := "rescheduled"
	_, appErr = svc.Update(context.Background(), userID, id, &dto.UpdateAppointmentRequest{Notes: &notes})
	require.Nil(t, appErr)
	assert.Equal(t, []string{syncdto.SyncActionCreate}, syncer.calls)
}

func TestUpdateSyncsLinkedAppointment(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &recordingSyncer{}
	svc := NewAppointmentService(repo, syncer)
	userID := uuid.New()

	created, appErr := svc.Create(context.Background(), userID, createRequest())
	require.Nil(t, appErr)

	id := uuid.MustParse(created.ID)
	start, end := "10:00", "10:30"
	_, appErr = svc.Update(context.Background(), userID, id, &dto.UpdateAppointmentRequest{StartTime: &start, EndTime: &end})
	require.Nil(t, appErr)
	assert.Equal(t, []string{syncdto.SyncActionCreate, syncdto.SyncActionUpdate}, syncer.calls)

	stored, _ := repo.GetByID(context.Background(), id)
	assert.Equal(t, 30, stored.Duration)
}

func TestDeleteRemovesLocalBeforeRemote(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &recordingSyncer{}
	svc := NewAppointmentService(repo, syncer)
	userID := uuid.New()

	created, appErr := svc.Create(context.Background(), userID, createRequest())
	require.Nil(t, appErr)
	id := uuid.MustParse(created.ID)

	syncer.err = errors.NewAppError(errors.ErrTransient, "down", nil)
	resp, appErr := svc.Delete(context.Background(), userID, id)
	require.Nil(t, appErr)
	assert.True(t, resp.Deleted)
	assert.NotEmpty(t, resp.SyncError)
	assert.Empty(t, repo.appointments, "local delete is never rolled back")
}

func TestOwnershipIsEnforced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewAppointmentService(repo, &recordingSyncer{})
	owner := uuid.New()

	created, appErr := svc.Create(context.Background(), owner, createRequest())
	require.Nil(t, appErr)
	id := uuid.MustParse(created.ID)

	_, appErr = svc.Get(context.Background(), uuid.New(), id)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestAddPaymentOnlyForPatients(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &recordingSyncer{}
	svc := NewAppointmentService(repo, syncer)
	userID := uuid.New()

	title := "Gym"
	personal, appErr := svc.Create(context.Background(), userID, &dto.CreateAppointmentRequest{
		AppointmentType: entity.TypePersonal,
		Date:            "2026-09-10",
		StartTime:       "18:00",
		EndTime:         "19:00",
		Title:           &title,
	})
	require.Nil(t, appErr)

	_, appErr = svc.AddPayment(context.Background(), userID, uuid.MustParse(personal.ID), &dto.AddPaymentRequest{Amount: 100})
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestAddPaymentRefreshesRemoteDescription(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &recordingSyncer{}
	svc := NewAppointmentService(repo, syncer)
	userID := uuid.New()

	created, appErr := svc.Create(context.Background(), userID, createRequest())
	require.Nil(t, appErr)
	id := uuid.MustParse(created.ID)

	payment, appErr := svc.AddPayment(context.Background(), userID, id, &dto.AddPaymentRequest{Amount: 200, Method: "cash"})
	require.Nil(t, appErr)
	assert.Equal(t, 200.0, payment.Amount)
	assert.Equal(t, []string{syncdto.SyncActionCreate, syncdto.SyncActionUpdate}, syncer.calls)
}
