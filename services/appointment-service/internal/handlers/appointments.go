package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/booking"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/scheduling"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/storage"
)

const ClinicHeader = "X-Clinic-Id"

type Scheduler interface {
	Slots(ctx context.Context, q scheduling.SlotQuery) ([]scheduling.Slot, error)
	NextAvailable(ctx context.Context, q scheduling.NextQuery) (scheduling.Slot, bool, error)
}

type Bookings interface {
	Book(ctx context.Context, req booking.NewAppointment) (model.Appointment, error)
	Reschedule(ctx context.Context, clinicID, appointmentID string, date time.Time, start availability.TimeOfDay) (model.Appointment, error)
	Cancel(ctx context.Context, clinicID, appointmentID, reason string) (model.Appointment, error)
	Complete(ctx context.Context, clinicID, appointmentID string, followUpAfterDays int) (model.Appointment, error)
}

type Appointments interface {
	Get(ctx context.Context, clinicID, appointmentID string) (model.Appointment, error)
	ListByProviderDate(ctx context.Context, clinicID, providerID string, date time.Time) ([]model.Appointment, error)
}

type AppointmentHandler struct {
	scheduler    Scheduler
	bookings     Bookings
	appointments Appointments
	logger       *slog.Logger
}

func NewAppointmentHandler(scheduler Scheduler, bookings Bookings, appointments Appointments, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		scheduler:    scheduler,
		bookings:     bookings,
		appointments: appointments,
		logger:       logger,
	}
}

func (h *AppointmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/slots", h.Slots)
	mux.HandleFunc("/api/v1/slots/next", h.NextSlot)
	mux.HandleFunc("/api/v1/appointments", h.Appointments)
	mux.HandleFunc("/api/v1/appointments/reschedule", h.Reschedule)
	mux.HandleFunc("/api/v1/appointments/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/appointments/complete", h.Complete)
}

type slotItem struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type nextSlotResponse struct {
	Found bool `json:"found"`
	*slotItem
}

type appointmentItem struct {
	AppointmentID string   `json:"appointment_id"`
	ProviderID    string   `json:"provider_id"`
	PatientID     string   `json:"patient_id"`
	ServiceIDs    []string `json:"service_ids"`
	Date          string   `json:"date"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
	Status        string   `json:"status"`
	FollowUpOf    string   `json:"follow_up_of,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	CancelledAt   string   `json:"cancelled_at,omitempty"`
	CancelReason  string   `json:"cancel_reason,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

type bookRequest struct {
	ProviderID string   `json:"provider_id"`
	PatientID  string   `json:"patient_id"`
	ServiceIDs []string `json:"service_ids"`
	Date       string   `json:"date"`
	Start      string   `json:"start"`
	Notes      string   `json:"notes"`
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Start         string `json:"start"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type completeRequest struct {
	AppointmentID     string `json:"appointment_id"`
	FollowUpAfterDays int    `json:"follow_up_after_days"`
}

func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clinicID, ok := requireClinic(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	providerID := strings.TrimSpace(q.Get("provider_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if providerID == "" || dateStr == "" {
		http.Error(w, "provider_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	slots, err := h.scheduler.Slots(r.Context(), scheduling.SlotQuery{
		ClinicID:   clinicID,
		ProviderID: providerID,
		Date:       date,
		ServiceIDs: splitList(q.Get("service_ids")),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, toSlotItem(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AppointmentHandler) NextSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clinicID, ok := requireClinic(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	providerID := strings.TrimSpace(q.Get("provider_id"))
	fromStr := strings.TrimSpace(q.Get("from"))
	if providerID == "" || fromStr == "" {
		http.Error(w, "provider_id and from are required", http.StatusBadRequest)
		return
	}
	from, err := model.ParseDate(fromStr)
	if err != nil {
		http.Error(w, "invalid from date", http.StatusBadRequest)
		return
	}
	lookahead := 0
	if raw := strings.TrimSpace(q.Get("lookahead_days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 366 {
			http.Error(w, "lookahead_days must be between 1 and 366", http.StatusBadRequest)
			return
		}
		lookahead = n
	}

	slot, found, err := h.scheduler.NextAvailable(r.Context(), scheduling.NextQuery{
		ClinicID:      clinicID,
		ProviderID:    providerID,
		From:          from,
		LookaheadDays: lookahead,
		ServiceIDs:    splitList(q.Get("service_ids")),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := nextSlotResponse{Found: found}
	if found {
		item := toSlotItem(slot)
		resp.slotItem = &item
	}
	writeJSON(w, http.StatusOK, resp)
}

// Appointments lists a provider's day on GET and books on POST.
func (h *AppointmentHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.book(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := requireClinic(w, r)
	if !ok {
		return
	}
	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	date, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if providerID == "" || err != nil {
		http.Error(w, "provider_id and a valid date are required", http.StatusBadRequest)
		return
	}
	appts, err := h.appointments.ListByProviderDate(r.Context(), clinicID, providerID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AppointmentHandler) book(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := requireClinic(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.ProviderID == "" || req.PatientID == "" {
		http.Error(w, "provider_id and patient_id are required", http.StatusBadRequest)
		return
	}
	date, start, ok := parseDateStart(w, req.Date, req.Start)
	if !ok {
		return
	}

	ctx := r.Context()
	slot, err := h.findSlot(ctx, scheduling.SlotQuery{
		ClinicID:   clinicID,
		ProviderID: req.ProviderID,
		Date:       date,
		ServiceIDs: req.ServiceIDs,
	}, start)
	if err != nil {
		h.writeError(w, err)
		return
	}

	appt, err := h.bookings.Book(ctx, booking.NewAppointment{
		ClinicID:     clinicID,
		ProviderID:   req.ProviderID,
		PatientID:    req.PatientID,
		ServiceIDs:   req.ServiceIDs,
		Date:         date,
		Start:        start,
		DurationMins: int(slot.End - slot.Start),
		Notes:        strings.TrimSpace(req.Notes),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentItem(appt))
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clinicID, ok := requireClinic(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}
	date, start, ok := parseDateStart(w, req.Date, req.Start)
	if !ok {
		return
	}

	ctx := r.Context()
	current, err := h.appointments.Get(ctx, clinicID, req.AppointmentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.findSlot(ctx, scheduling.SlotQuery{
		ClinicID:   clinicID,
		ProviderID: current.ProviderID,
		Date:       date,
		ServiceIDs: current.ServiceIDs,
		Exclude:    current.ID,
	}, start); err != nil {
		h.writeError(w, err)
		return
	}

	appt, err := h.bookings.Reschedule(ctx, clinicID, req.AppointmentID, date, start)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clinicID, ok := requireClinic(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}

	appt, err := h.bookings.Cancel(r.Context(), clinicID, req.AppointmentID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clinicID, ok := requireClinic(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" || req.FollowUpAfterDays < 0 {
		http.Error(w, "appointment_id is required and follow_up_after_days must not be negative", http.StatusBadRequest)
		return
	}

	appt, err := h.bookings.Complete(r.Context(), clinicID, req.AppointmentID, req.FollowUpAfterDays)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

// findSlot checks that start is one of the free slots for the query and returns it.
// A start that is off the grid, outside working hours or overlapping a booking is a conflict.
func (h *AppointmentHandler) findSlot(ctx context.Context, q scheduling.SlotQuery, start availability.TimeOfDay) (scheduling.Slot, error) {
	slots, err := h.scheduler.Slots(ctx, q)
	if err != nil {
		return scheduling.Slot{}, err
	}
	for _, s := range slots {
		if s.Start == start {
			return s, nil
		}
	}
	return scheduling.Slot{}, errSlotUnavailable
}

var errSlotUnavailable = errors.New("requested time is not an available slot")

func (h *AppointmentHandler) writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err)
	}
	http.Error(w, msg, status)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, availability.ErrInvalidTimeFormat),
		errors.Is(err, availability.ErrInvalidWindow),
		errors.Is(err, availability.ErrInvalidDuration),
		errors.Is(err, scheduling.ErrInvalidQuery),
		errors.Is(err, booking.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, booking.ErrSlotTaken), errors.Is(err, errSlotUnavailable):
		return http.StatusConflict, err.Error()
	case errors.Is(err, booking.ErrNotFound), storage.IsNotFound(err):
		return http.StatusNotFound, "not found"
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, scheduling.ErrProviderInactive):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func requireClinic(w http.ResponseWriter, r *http.Request) (string, bool) {
	clinicID := strings.TrimSpace(r.Header.Get(ClinicHeader))
	if clinicID == "" {
		http.Error(w, ClinicHeader+" header required", http.StatusBadRequest)
		return "", false
	}
	return clinicID, true
}

func parseDateStart(w http.ResponseWriter, dateStr, startStr string) (time.Time, availability.TimeOfDay, bool) {
	date, err := model.ParseDate(strings.TrimSpace(dateStr))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return time.Time{}, 0, false
	}
	start, err := availability.ParseTimeOfDay(startStr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return time.Time{}, 0, false
	}
	return date, start, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toSlotItem(s scheduling.Slot) slotItem {
	return slotItem{
		Date:  s.Date.Format(model.DateLayout),
		Start: s.Start.String(),
		End:   availability.FormatEnd(s.End),
	}
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	serviceIDs := a.ServiceIDs
	if serviceIDs == nil {
		serviceIDs = []string{}
	}
	item := appointmentItem{
		AppointmentID: a.ID,
		ProviderID:    a.ProviderID,
		PatientID:     a.PatientID,
		ServiceIDs:    serviceIDs,
		Date:          a.DateString(),
		Start:         availability.TimeOfDay(a.StartMinute).String(),
		End:           availability.FormatEnd(availability.TimeOfDay(a.EndMinute)),
		Status:        a.Status,
		FollowUpOf:    a.FollowUpOf,
		Notes:         a.Notes,
		CancelReason:  a.CancelReason,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
