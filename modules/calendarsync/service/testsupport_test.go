package service

import (
	"context"
	"fmt"
	"time"

	"clinic-api/core/errors"
	apptEntity "clinic-api/modules/appointment/entity"
	apptRepo "clinic-api/modules/appointment/repository"
	"clinic-api/modules/calendarsync/dto"
	"clinic-api/modules/calendarsync/entity"
	notifDto "clinic-api/modules/notification/dto"

	"github.com/google/uuid"
)

// fakeSyncRepo is an in-memory SyncRepository.
type fakeSyncRepo struct {
	connections map[uuid.UUID]string
	states      map[string]entity.OAuthState
}

func newFakeSyncRepo() *fakeSyncRepo {
	return &fakeSyncRepo{
		connections: make(map[uuid.UUID]string),
		states:      make(map[string]entity.OAuthState),
	}
}

func (r *fakeSyncRepo) GetConnection(_ context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	token, ok := r.connections[userID]
	if !ok {
		return nil, nil
	}
	return &entity.CalendarConnection{UserID: userID, RefreshToken: token}, nil
}

func (r *fakeSyncRepo) SaveConnection(_ context.Context, userID uuid.UUID, refreshToken string) error {
	r.connections[userID] = refreshToken
	return nil
}

func (r *fakeSyncRepo) DeleteConnection(_ context.Context, userID uuid.UUID) error {
	delete(r.connections, userID)
	return nil
}

func (r *fakeSyncRepo) ListConnections(_ context.Context) ([]entity.CalendarConnection, error) {
	var conns []entity.CalendarConnection
	for userID, token := range r.connections {
		conns = append(conns, entity.CalendarConnection{UserID: userID, RefreshToken: token})
	}
	return conns, nil
}

func (r *fakeSyncRepo) SaveOAuthState(_ context.Context, state string, userID uuid.UUID, expiresAt time.Time) error {
	r.states[state] = entity.OAuthState{State: state, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (r *fakeSyncRepo) ConsumeOAuthState(_ context.Context, state string) (*entity.OAuthState, error) {
	record, ok := r.states[state]
	if !ok || record.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	delete(r.states, state)
	return &record, nil
}

func (r *fakeSyncRepo) CleanupExpiredOAuthStates(_ context.Context) error {
	for state, record := range r.states {
		if record.ExpiresAt.Before(time.Now()) {
			delete(r.states, state)
		}
	}
	return nil
}

// fakeApptRepo is an in-memory AppointmentRepository that counts writes. Like
// the real schema, it rejects two appointments holding the same remote event
// id.
type fakeApptRepo struct {
	appointments map[uuid.UUID]*apptEntity.Appointment
	payments     map[uuid.UUID][]apptEntity.Payment
	writes       int
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{
		appointments: make(map[uuid.UUID]*apptEntity.Appointment),
		payments:     make(map[uuid.UUID][]apptEntity.Payment),
	}
}

func (r *fakeApptRepo) put(appt *apptEntity.Appointment) *apptEntity.Appointment {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	r.appointments[appt.ID] = appt
	return appt
}

func (r *fakeApptRepo) remoteEventIDHeldElsewhere(id uuid.UUID, remoteEventID string) bool {
	for otherID, other := range r.appointments {
		if otherID != id && other.RemoteEventID != nil && *other.RemoteEventID == remoteEventID {
			return true
		}
	}
	return false
}

func (r *fakeApptRepo) Create(_ context.Context, appt *apptEntity.Appointment) (*apptEntity.Appointment, error) {
	if appt.RemoteEventID != nil && *appt.RemoteEventID != "" &&
		r.remoteEventIDHeldElsewhere(appt.ID, *appt.RemoteEventID) {
		return nil, fmt.Errorf("duplicate remote event id %s", *appt.RemoteEventID)
	}
	r.writes++
	return r.put(appt), nil
}

func (r *fakeApptRepo) GetByID(_ context.Context, id uuid.UUID) (*apptEntity.Appointment, error) {
	appt, ok := r.appointments[id]
	if !ok {
		return nil, nil
	}
	copied := *appt
	return &copied, nil
}

func (r *fakeApptRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ time.Time) ([]apptEntity.Appointment, error) {
	var out []apptEntity.Appointment
	for _, appt := range r.appointments {
		if appt.UserID == userID {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (r *fakeApptRepo) ListForSync(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]apptEntity.Appointment, error) {
	return r.ListByUser(ctx, userID, from, to)
}

func (r *fakeApptRepo) Update(_ context.Context, id uuid.UUID, patch *apptRepo.AppointmentPatch) error {
	if patch == nil || patch.IsZero() {
		return nil
	}
	r.writes++
	appt, ok := r.appointments[id]
	if !ok {
		return fmt.Errorf("appointment %s not found", id)
	}
	if patch.Date != nil {
		appt.Date = *patch.Date
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
	if patch.Status != nil {
		appt.Status = *patch.Status
	}
	if patch.Title != nil {
		title := *patch.Title
		appt.Title = &title
	}
	if patch.Notes != nil {
		appt.Notes = *patch.Notes
	}
	if patch.Treatment != nil {
		appt.Treatment = *patch.Treatment
	}
	if patch.Fee != nil {
		appt.Fee = *patch.Fee
	}
	if patch.Deposit != nil {
		appt.Deposit = *patch.Deposit
	}
	if patch.PatientName != nil {
		name := *patch.PatientName
		appt.PatientName = &name
	}
	return nil
}

func (r *fakeApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.writes++
	delete(r.appointments, id)
	return nil
}

func (r *fakeApptRepo) SetRemoteEventID(_ context.Context, id uuid.UUID, remoteEventID string) error {
	if remoteEventID != "" && r.remoteEventIDHeldElsewhere(id, remoteEventID) {
		return fmt.Errorf("duplicate remote event id %s", remoteEventID)
	}
	r.writes++
	if appt, ok := r.appointments[id]; ok {
		appt.RemoteEventID = &remoteEventID
	}
	return nil
}

func (r *fakeApptRepo) ClearRemoteEventID(_ context.Context, id uuid.UUID) error {
	if appt, ok := r.appointments[id]; ok {
		appt.RemoteEventID = nil
	}
	return nil
}

func (r *fakeApptRepo) FindByRemoteEventID(_ context.Context, userID uuid.UUID, remoteEventID string) (*apptEntity.Appointment, error) {
	for _, appt := range r.appointments {
		if appt.UserID == userID && appt.RemoteEventID != nil && *appt.RemoteEventID == remoteEventID {
			copied := *appt
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeApptRepo) ListPayments(_ context.Context, appointmentID uuid.UUID) ([]apptEntity.Payment, error) {
	return r.payments[appointmentID], nil
}

func (r *fakeApptRepo) AddPayment(_ context.Context, payment *apptEntity.Payment) (*apptEntity.Payment, error) {
	r.payments[payment.AppointmentID] = append(r.payments[payment.AppointmentID], *payment)
	return payment, nil
}

// fakeCalendar is a scripted CalendarAPI.
type fakeCalendar struct {
	events []dto.RemoteEvent

	listErr   *errors.AppError
	createErr *errors.AppError
	updateErr *errors.AppError
	deleteErr *errors.AppError

	nextEventID string
	created     []dto.EventDraft
	updated     map[string]dto.EventDraft
	deleted     []string
	listCalls   int

	onList func()
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		nextEventID: "evt-1",
		updated:     make(map[string]dto.EventDraft),
	}
}

func (f *fakeCalendar) ListEvents(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]dto.RemoteEvent, *errors.AppError) {
	f.listCalls++
	if f.onList != nil {
		f.onList()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ uuid.UUID, draft *dto.EventDraft) (string, *errors.AppError) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, *draft)
	return f.nextEventID, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, _ uuid.UUID, eventID string, draft *dto.EventDraft) (string, *errors.AppError) {
	if f.updateErr != nil {
		return "", f.updateErr
	}
	f.updated[eventID] = *draft
	return eventID, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ uuid.UUID, eventID string) *errors.AppError {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

func errTransientForTest() *errors.AppError {
	return errors.NewAppError(errors.ErrTransient, "calendar provider unreachable", nil)
}

// fakeNotifier records reconnect notifications.
type fakeNotifier struct {
	requests []notifDto.CreateNotificationRequest
}

func (f *fakeNotifier) Create(_ context.Context, req *notifDto.CreateNotificationRequest) *errors.AppError {
	f.requests = append(f.requests, *req)
	return nil
}
