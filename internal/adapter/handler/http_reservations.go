package handler

import (
	"net/http"
	"time"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
)

type reservationRequest struct {
	UserID          string          `json:"userId"`
	GuestName       string          `json:"guestName"`
	GuestEmail      string          `json:"guestEmail"`
	GuestPhone      string          `json:"guestPhone"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	PartySize       int             `json:"partySize"`
	Occasion        domain.Occasion `json:"occasion"`
	SpecialRequests string          `json:"specialRequests"`
}

type reservationSummary struct {
	ConfirmationCode string                   `json:"confirmationCode"`
	Date             time.Time                `json:"date"`
	Time             string                   `json:"time"`
	PartySize        int                      `json:"partySize"`
	Status           domain.ReservationStatus `json:"status"`
}

func (h *HTTPHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	var day time.Time
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		day = d
	}
	res, err := h.svc.Reservations.Create(r.Context(), service.CreateReservationInput{
		UserID:          req.UserID,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		Date:            day,
		Time:            req.Time,
		PartySize:       req.PartySize,
		Occasion:        req.Occasion,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message     string             `json:"message"`
		Reservation reservationSummary `json:"reservation"`
	}{
		Message: "Reservation created successfully",
		Reservation: reservationSummary{
			ConfirmationCode: res.ConfirmationCode,
			Date:             res.Date,
			Time:             res.Time,
			PartySize:        res.PartySize,
			Status:           res.Status,
		},
	})
}

func (h *HTTPHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reservations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) ListUserReservations(w http.ResponseWriter, r *http.Request) {
	status := domain.ReservationStatus(r.URL.Query().Get("status"))
	list, err := h.svc.Reservations.ListForUser(r.Context(), r.PathValue("userId"), status, queryBool(r, "upcoming"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": list})
}

func (h *HTTPHandler) LookupReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reservations.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date            *string `json:"date"`
		Time            *string `json:"time"`
		PartySize       *int    `json:"partySize"`
		SpecialRequests *string `json:"specialRequests"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	patch := service.ReservationPatch{Time: req.Time, PartySize: req.PartySize, SpecialRequests: req.SpecialRequests}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		patch.Date = &d
	}
	res, err := h.svc.Reservations.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.svc.Reservations.Cancel(r.Context(), r.PathValue("id"), req.Reason); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Reservation cancelled successfully")
}

func (h *HTTPHandler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status      domain.ReservationStatus `json:"status"`
		TableNumber int                      `json:"tableNumber"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Reservations.UpdateStatus(r.Context(), r.PathValue("id"), req.Status, req.TableNumber)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("date")
	day, err := parseDate(raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slots, err := h.svc.Reservations.AvailableSlots(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Date  string                    `json:"date"`
		Slots []domain.SlotAvailability `json:"slots"`
	}{day.Format(time.DateOnly), slots})
}
