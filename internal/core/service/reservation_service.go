package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/port"
)

const (
	maxUserReservations    = 20
	maxConfirmationRetries = 5
)

var activeReservationStatuses = []domain.ReservationStatus{domain.ReservationPending, domain.ReservationConfirmed}

type ReservationService struct {
	store  port.ReservationRepository
	locker port.Locker
	options
}

func NewReservationService(store port.ReservationRepository, locker port.Locker, opts ...Option) *ReservationService {
	return &ReservationService{store: store, locker: locker, options: buildOptions(opts)}
}

type CreateReservationInput struct {
	UserID          string
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	Date            time.Time
	Time            string
	PartySize       int
	Occasion        domain.Occasion
	SpecialRequests string
}

func dayLockKey(day time.Time) string {
	return "reservations:" + day.Format(time.DateOnly)
}

func dayOf(t time.Time) time.Time {
	start, _ := domain.DayBounds(t.UTC())
	return start
}

// slotStart is the instant a reservation begins.
func slotStart(day time.Time, slot string) time.Time {
	hm, err := time.Parse("15:04", slot)
	if err != nil {
		return day
	}
	return day.Add(time.Duration(hm.Hour())*time.Hour + time.Duration(hm.Minute())*time.Minute)
}

func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*domain.Reservation, error) {
	const op = "reservation.Create"
	now := s.now()
	r := domain.Reservation{
		UserID:          strings.TrimSpace(in.UserID),
		GuestName:       strings.TrimSpace(in.GuestName),
		GuestEmail:      domain.NormalizeEmail(in.GuestEmail),
		GuestPhone:      strings.TrimSpace(in.GuestPhone),
		Time:            in.Time,
		PartySize:       in.PartySize,
		Occasion:        in.Occasion,
		SpecialRequests: strings.TrimSpace(in.SpecialRequests),
		Status:          domain.ReservationPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !in.Date.IsZero() {
		r.Date = dayOf(in.Date)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Occasion == "" {
		r.Occasion = domain.OccasionNone
	}
	if !slotStart(r.Date, r.Time).After(now) {
		return nil, domain.Invalid(op, "reservation date must be in the future")
	}

	err := withLock(ctx, s.locker, dayLockKey(r.Date), func() error {
		if err := s.checkCapacity(ctx, op, r.Date, r.Time, ""); err != nil {
			return err
		}
		for attempt := 1; ; attempt++ {
			r.ID = s.newID()
			r.ConfirmationCode = domain.NewConfirmationCode()
			err := s.store.CreateReservation(ctx, r)
			if err == nil {
				return nil
			}
			if !errors.Is(err, domain.ErrDuplicate) || attempt == maxConfirmationRetries {
				return fmt.Errorf("create reservation: %w", err)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "reservation created", "code", r.ConfirmationCode, "date", r.Date.Format(time.DateOnly), "time", r.Time)
	return &r, nil
}

// checkCapacity fails when the slot already holds TablesPerSlot active
// reservations. exceptID is left out of the count.
func (s *ReservationService) checkCapacity(ctx context.Context, op string, day time.Time, slot, exceptID string) error {
	start, end := domain.DayBounds(day)
	active, err := s.store.ListReservations(ctx, domain.ReservationFilter{
		Statuses: activeReservationStatuses,
		From:     start,
		To:       end,
	})
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	taken := 0
	for _, r := range active {
		if r.Time == slot && r.ID != exceptID {
			taken++
		}
	}
	if taken >= domain.TablesPerSlot {
		return domain.Invalid(op, "the "+slot+" slot is fully booked")
	}
	return nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if r == nil {
		return nil, domain.NotFound("reservation.Get", "reservation", id)
	}
	return r, nil
}

// ReservationLookup is the public view returned for a confirmation code.
type ReservationLookup struct {
	ConfirmationCode string                   `json:"confirmationCode"`
	GuestName        string                   `json:"guestName"`
	Date             time.Time                `json:"date"`
	Time             string                   `json:"time"`
	PartySize        int                      `json:"partySize"`
	Status           domain.ReservationStatus `json:"status"`
	TableNumber      int                      `json:"tableNumber,omitempty"`
}

func (s *ReservationService) Lookup(ctx context.Context, code string) (*ReservationLookup, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	r, err := s.store.GetReservationByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup reservation: %w", err)
	}
	if r == nil {
		return nil, domain.NotFound("reservation.Lookup", "reservation", code)
	}
	return &ReservationLookup{
		ConfirmationCode: r.ConfirmationCode,
		GuestName:        r.GuestName,
		Date:             r.Date,
		Time:             r.Time,
		PartySize:        r.PartySize,
		Status:           r.Status,
		TableNumber:      r.TableNumber,
	}, nil
}

// ListForUser returns a user's reservations, newest first. upcoming keeps
// only active reservations from today on and overrides status.
func (s *ReservationService) ListForUser(ctx context.Context, userID string, status domain.ReservationStatus, upcoming bool) ([]domain.Reservation, error) {
	filter := domain.ReservationFilter{UserID: userID, Limit: maxUserReservations}
	switch {
	case upcoming:
		filter.Statuses = activeReservationStatuses
		filter.From = dayOf(s.now())
	case status != "":
		if !status.Valid() {
			return nil, domain.Invalid("reservation.List", "invalid status "+string(status))
		}
		filter.Statuses = []domain.ReservationStatus{status}
	}
	out, err := s.store.ListReservations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

type ReservationPatch struct {
	Date            *time.Time
	Time            *string
	PartySize       *int
	SpecialRequests *string
}

func (s *ReservationService) Update(ctx context.Context, id string, patch ReservationPatch) (*domain.Reservation, error) {
	const op = "reservation.Update"
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.Active() {
		return nil, domain.NewError(op, domain.ErrInvalidState, id, "cannot modify reservation in current status")
	}

	from := r.Status
	updated := r.Clone()
	if patch.Date != nil {
		updated.Date = dayOf(*patch.Date)
	}
	if patch.Time != nil {
		updated.Time = *patch.Time
	}
	if patch.PartySize != nil {
		updated.PartySize = *patch.PartySize
	}
	if patch.SpecialRequests != nil {
		updated.SpecialRequests = strings.TrimSpace(*patch.SpecialRequests)
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	moved := !updated.Date.Equal(r.Date) || updated.Time != r.Time
	if moved && !slotStart(updated.Date, updated.Time).After(s.now()) {
		return nil, domain.Invalid(op, "reservation date must be in the future")
	}
	updated.UpdatedAt = s.now()

	write := func() error {
		if moved {
			if err := s.checkCapacity(ctx, op, updated.Date, updated.Time, id); err != nil {
				return err
			}
		}
		return s.write(ctx, op, updated, from)
	}
	if moved {
		err = withLock(ctx, s.locker, dayLockKey(updated.Date), write)
	} else {
		err = write()
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *ReservationService) write(ctx context.Context, op string, r domain.Reservation, from domain.ReservationStatus) error {
	if err := s.store.UpdateReservation(ctx, r, from); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.NewError(op, domain.ErrInvalidState, r.ID, "reservation changed concurrently")
		}
		return fmt.Errorf("update reservation: %w", err)
	}
	return nil
}

func (s *ReservationService) Cancel(ctx context.Context, id, reason string) (*domain.Reservation, error) {
	const op = "reservation.Cancel"
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransition(domain.ReservationCancelled) {
		return nil, domain.NewError(op, domain.ErrInvalidState, id, "cannot cancel reservation in current status")
	}
	from := r.Status
	now := s.now()
	updated := r.Clone()
	updated.Status = domain.ReservationCancelled
	updated.CancelledAt = &now
	updated.CancellationReason = strings.TrimSpace(reason)
	updated.UpdatedAt = now
	if err := s.write(ctx, op, updated, from); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "reservation cancelled", "code", r.ConfirmationCode)
	return &updated, nil
}

// UpdateStatus moves a reservation along its lifecycle. A positive
// tableNumber assigns the table at the same time.
func (s *ReservationService) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus, tableNumber int) (*domain.Reservation, error) {
	const op = "reservation.UpdateStatus"
	if !status.Valid() {
		return nil, domain.Invalid(op, "invalid status "+string(status))
	}
	if status == domain.ReservationCancelled {
		return s.Cancel(ctx, id, "")
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransition(status) {
		return nil, domain.NewError(op, domain.ErrInvalidState, id,
			fmt.Sprintf("cannot change reservation status from %s to %s", r.Status, status))
	}
	from := r.Status
	updated := r.Clone()
	updated.Status = status
	if tableNumber > 0 {
		updated.TableNumber = tableNumber
	}
	updated.UpdatedAt = s.now()
	if err := s.write(ctx, op, updated, from); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *ReservationService) AvailableSlots(ctx context.Context, date time.Time) ([]domain.SlotAvailability, error) {
	start, end := domain.DayBounds(dayOf(date))
	active, err := s.store.ListReservations(ctx, domain.ReservationFilter{
		Statuses: activeReservationStatuses,
		From:     start,
		To:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return domain.Availability(active), nil
}
