package domain

import (
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationSeated    ReservationStatus = "seated"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationNoShow    ReservationStatus = "no-show"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationSeated, ReservationCancelled, ReservationNoShow},
	ReservationSeated:    {ReservationCompleted},
	ReservationCompleted: nil,
	ReservationCancelled: nil,
	ReservationNoShow:    nil,
}

func (s ReservationStatus) Valid() bool {
	_, ok := reservationTransitions[s]
	return ok
}

func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active reservations hold a table and may still be modified.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

type Occasion string

const (
	OccasionNone        Occasion = "none"
	OccasionBirthday    Occasion = "birthday"
	OccasionAnniversary Occasion = "anniversary"
	OccasionBusiness    Occasion = "business"
	OccasionDate        Occasion = "date"
	OccasionCelebration Occasion = "celebration"
	OccasionOther       Occasion = "other"
)

func (o Occasion) Valid() bool {
	switch o {
	case "", OccasionNone, OccasionBirthday, OccasionAnniversary, OccasionBusiness,
		OccasionDate, OccasionCelebration, OccasionOther:
		return true
	}
	return false
}

const (
	MinPartySize      = 1
	MaxPartySize      = 20
	TablesPerSlot     = 10
	ReservationPrefix = "HSC-"
)

// TimeSlots are the bookable start times, every 30 minutes 11:00–21:00.
var TimeSlots = []string{
	"11:00", "11:30", "12:00", "12:30", "13:00", "13:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
	"17:00", "17:30", "18:00", "18:30", "19:00", "19:30",
	"20:00", "20:30", "21:00",
}

func ValidSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

type Reservation struct {
	ID                 string            `json:"id" bson:"_id"`
	UserID             string            `json:"userId,omitempty" bson:"userId,omitempty"`
	GuestName          string            `json:"guestName" bson:"guestName"`
	GuestEmail         string            `json:"guestEmail" bson:"guestEmail"`
	GuestPhone         string            `json:"guestPhone" bson:"guestPhone"`
	Date               time.Time         `json:"date" bson:"date"`
	Time               string            `json:"time" bson:"time"`
	PartySize          int               `json:"partySize" bson:"partySize"`
	TableNumber        int               `json:"tableNumber,omitempty" bson:"tableNumber,omitempty"`
	Occasion           Occasion          `json:"occasion,omitempty" bson:"occasion,omitempty"`
	SpecialRequests    string            `json:"specialRequests,omitempty" bson:"specialRequests,omitempty"`
	Status             ReservationStatus `json:"status" bson:"status"`
	ConfirmationCode   string            `json:"confirmationCode" bson:"confirmationCode"`
	Notes              string            `json:"notes,omitempty" bson:"notes,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	CancellationReason string            `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	CreatedAt          time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt" bson:"updatedAt"`
}

func (r Reservation) Clone() Reservation {
	out := r
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		out.CancelledAt = &t
	}
	return out
}

// Validate checks the guest-supplied fields.
func (r Reservation) Validate() error {
	const op = "reservation.Validate"
	switch {
	case strings.TrimSpace(r.GuestName) == "",
		strings.TrimSpace(r.GuestEmail) == "",
		strings.TrimSpace(r.GuestPhone) == "",
		r.Date.IsZero(), r.Time == "":
		return Invalid(op, "all fields are required")
	case r.PartySize < MinPartySize:
		return Invalid(op, "party size must be at least 1")
	case r.PartySize > MaxPartySize:
		return Invalid(op, "for parties larger than 20, please call us")
	case !ValidSlot(r.Time):
		return Invalid(op, "unknown time slot "+r.Time)
	case !r.Occasion.Valid():
		return Invalid(op, "unknown occasion "+string(r.Occasion))
	case len(r.SpecialRequests) > MaxInstructionsLength:
		return Invalid(op, "special requests are too long")
	}
	return nil
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	UserID   string
	Statuses []ReservationStatus
	From     time.Time // inclusive, zero for unbounded
	To       time.Time // inclusive, zero for unbounded
	Limit    int
}

func (f ReservationFilter) Match(r Reservation) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To) {
		return false
	}
	return true
}

// SlotAvailability reports the remaining capacity of one time slot.
type SlotAvailability struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Remaining int    `json:"remaining"`
}

// Availability counts active reservations per slot.
func Availability(active []Reservation) []SlotAvailability {
	counts := make(map[string]int)
	for _, r := range active {
		counts[r.Time]++
	}
	out := make([]SlotAvailability, 0, len(TimeSlots))
	for _, slot := range TimeSlots {
		remaining := TablesPerSlot - counts[slot]
		out = append(out, SlotAvailability{Time: slot, Available: remaining > 0, Remaining: max(remaining, 0)})
	}
	return out
}

// DayBounds returns the first and last instant of t's calendar day.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24*time.Hour - time.Nanosecond)
}
