package dto

// CreateAppointmentRequest creates a clinic or personal appointment.
type CreateAppointmentRequest struct {
	AppointmentType string  `json:"appointment_type" validate:"required"` // patient | personal
	Date            string  `json:"date" validate:"required"`             // "2006-01-02"
	StartTime       string  `json:"start_time" validate:"required"`       // "15:04"
	EndTime         string  `json:"end_time" validate:"required"`
	Status          string  `json:"status"`
	Title           *string `json:"title,omitempty"`
	Notes           string  `json:"notes"`
	Treatment       string  `json:"treatment"`
	Fee             float64 `json:"fee"`
	Deposit         float64 `json:"deposit"`
	PatientID       *string `json:"patient_id,omitempty"`
	PatientName     *string `json:"patient_name,omitempty"`
	OfficeColorID   string  `json:"office_color_id,omitempty"`
}

// UpdateAppointmentRequest carries only the fields to change.
type UpdateAppointmentRequest struct {
	Date          *string  `json:"date,omitempty"`
	StartTime     *string  `json:"start_time,omitempty"`
	EndTime       *string  `json:"end_time,omitempty"`
	Status        *string  `json:"status,omitempty"`
	Title         *string  `json:"title,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	Treatment     *string  `json:"treatment,omitempty"`
	Fee           *float64 `json:"fee,omitempty"`
	Deposit       *float64 `json:"deposit,omitempty"`
	PatientName   *string  `json:"patient_name,omitempty"`
	OfficeColorID string   `json:"office_color_id,omitempty"`
}

type AppointmentResponse struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	AppointmentType string  `json:"appointment_type"`
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Duration        int     `json:"duration"`
	Status          string  `json:"status"`
	Title           *string `json:"title,omitempty"`
	Notes           string  `json:"notes"`
	Treatment       string  `json:"treatment"`
	Fee             float64 `json:"fee"`
	Deposit         float64 `json:"deposit"`
	PatientID       *string `json:"patient_id,omitempty"`
	PatientName     *string `json:"patient_name,omitempty"`
	RemoteEventID   *string `json:"remote_event_id,omitempty"`
	SyncError       string  `json:"sync_error,omitempty"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type AddPaymentRequest struct {
	Amount float64 `json:"amount" validate:"required"`
	Method string  `json:"method"`
	PaidAt string  `json:"paid_at,omitempty"` // RFC3339, defaults to now
}

type DeleteAppointmentResponse struct {
	Deleted   bool   `json:"deleted"`
	SyncError string `json:"sync_error,omitempty"`
}
