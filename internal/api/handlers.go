package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"barbershop/internal/booking"
	"barbershop/internal/metrics"
	"barbershop/internal/model"
	"barbershop/internal/report"
)

// SlotsResponse is the response for GET /api/slots.
type SlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// StatusRequest is the body for POST /api/admin/appointments/{id}/status.
type StatusRequest struct {
	Status model.AppointmentStatus `json:"status"`
}

// CancelRequest is the body for POST /api/appointments/{id}/cancel.
type CancelRequest struct {
	CustomerID string `json:"customer_id"`
}

// GET /api/settings
func (s *HTTPServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("settings")

	settings, err := s.service.Settings(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// GET /api/slots?date=YYYY-MM-DD
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	slots, err := s.service.AvailableSlots(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Date: date, Slots: slots})
}

// POST /api/appointments
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")

	var req booking.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appt, err := s.service.TryBook(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// GET /api/appointments?customer_id=
func (s *HTTPServer) handleCustomerAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("customer_appointments")

	list, err := s.service.CustomerAppointments(r.Context(), r.URL.Query().Get("customer_id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/appointments/{id}/cancel
func (s *HTTPServer) handleCustomerCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("customer_cancel")

	var req CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appt, err := s.service.CancelByCustomer(r.Context(), r.PathValue("id"), req.CustomerID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// PUT /api/admin/settings
func (s *HTTPServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_update_settings")

	var in model.ShopSettings
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.service.UpdateSettings(r.Context(), &in)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// GET /api/admin/appointments?date=
func (s *HTTPServer) handleAdminAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_appointments")

	list, err := s.service.AppointmentsForDate(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/admin/appointments/upcoming
func (s *HTTPServer) handleUpcomingAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_upcoming")

	overview, err := s.service.UpcomingAppointments(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// GET /api/admin/appointments/{id}
func (s *HTTPServer) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_appointment")

	appt, err := s.service.Appointment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// POST /api/admin/appointments/{id}/status
func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_update_status")

	var req StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appt, err := s.service.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// GET /api/admin/closures
func (s *HTTPServer) handleListClosures(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_closures")

	list, err := s.service.Closures(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/admin/closures
func (s *HTTPServer) handleAddClosure(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_add_closure")

	var c model.Closure
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.service.AddClosure(r.Context(), c)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// DELETE /api/admin/closures/{id}
func (s *HTTPServer) handleDeleteClosure(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_delete_closure")

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid closure id")
		return
	}

	if err := s.service.RemoveClosure(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/admin/reports/earnings?from=&to=[&format=xlsx]
func (s *HTTPServer) handleEarnings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_earnings")

	q := r.URL.Query()
	earnings, err := report.Build(r.Context(), s.reports, s.service.ShopID(), q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if q.Get("format") != "xlsx" {
		writeJSON(w, http.StatusOK, earnings)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, earnings); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="earnings_%s_%s.xlsx"`, earnings.From, earnings.To))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
