package dto

// Outbound sync actions
const (
	SyncActionCreate = "create"
	SyncActionUpdate = "update"
	SyncActionDelete = "delete"
)

// Remote event statuses as reported by Google Calendar
const (
	EventStatusConfirmed = "confirmed"
	EventStatusCancelled = "cancelled"
)

// Keys of the private metadata bag stashed on remote events for round-trip
// matching.
const (
	PrivateKeyAppointmentID   = "appointmentId"
	PrivateKeyUserID          = "userId"
	PrivateKeyAppointmentType = "appointmentType"
	PrivateKeyPatientID       = "patientId"
	PrivateKeyPatientName     = "patientName"
)

// EventDateTime mirrors the Google Calendar event time shape. DateTime is a
// wall-clock timestamp interpreted in TimeZone.
type EventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type EventExtendedProperties struct {
	Private map[string]string `json:"private,omitempty"`
}

// RemoteEvent is a calendar entry as represented by the provider.
type RemoteEvent struct {
	ID                 string                   `json:"id"`
	Status             string                   `json:"status"`
	Summary            string                   `json:"summary"`
	Description        string                   `json:"description"`
	Start              EventDateTime            `json:"start"`
	End                EventDateTime            `json:"end"`
	Updated            string                   `json:"updated"`
	ExtendedProperties *EventExtendedProperties `json:"extendedProperties,omitempty"`
}

// PrivateMeta returns the private metadata bag, never nil.
func (e *RemoteEvent) PrivateMeta() map[string]string {
	if e.ExtendedProperties == nil || e.ExtendedProperties.Private == nil {
		return map[string]string{}
	}
	return e.ExtendedProperties.Private
}

// EventDraft is the outbound mutation payload for a remote event.
type EventDraft struct {
	Summary            string                   `json:"summary"`
	Description        string                   `json:"description,omitempty"`
	Start              EventDateTime            `json:"start"`
	End                EventDateTime            `json:"end"`
	ColorID            string                   `json:"colorId,omitempty"`
	ExtendedProperties *EventExtendedProperties `json:"extendedProperties,omitempty"`
}

// ========== Endpoint DTOs ==========

type ConnectResponse struct {
	URL string `json:"url"`
}

type StatusResponse struct {
	Connected bool   `json:"connected"`
	State     string `json:"state"`
}

// SyncAppointment is the appointment payload accepted by POST /sync. The
// server-side record is preferred when it still exists; the payload covers
// the delete-after-local-delete case.
type SyncAppointment struct {
	ID              string  `json:"id"`
	AppointmentType string  `json:"appointment_type"`
	Date            string  `json:"date"`       // "2006-01-02"
	StartTime       string  `json:"start_time"` // "15:04"
	EndTime         string  `json:"end_time"`
	Status          string  `json:"status"`
	Title           *string `json:"title,omitempty"`
	Notes           string  `json:"notes"`
	Treatment       string  `json:"treatment"`
	Fee             float64 `json:"fee"`
	Deposit         float64 `json:"deposit"`
	PatientID       *string `json:"patient_id,omitempty"`
	PatientName     *string `json:"patient_name,omitempty"`
	RemoteEventID   *string `json:"remote_event_id,omitempty"`
}

type SyncRequest struct {
	Appointment   SyncAppointment `json:"appointment"`
	Action        string          `json:"action"`
	OfficeColorID string          `json:"office_color_id,omitempty"`
}

type SyncResponse struct {
	Success bool    `json:"success"`
	EventID *string `json:"event_id"`
}

type PullRequest struct {
	TimeMin string `json:"time_min"` // RFC3339
	TimeMax string `json:"time_max"`
}

type PullResponse struct {
	Items []RemoteEvent `json:"items"`
}
