package tickets

import (
	"context"
	"fmt"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"
)

// CheckInWithTicket admits the holder of a ticket credential.
//
// Checks run in a fixed order so the door sees the most specific reason:
// unknown ticket, already checked in, guest not active, event not active,
// event not started. The final transition is a compare-and-set on the guest
// still being active, so of two simultaneous scans exactly one wins and the
// other reports GUEST_ALREADY_CHECKED_IN.
func (s *TicketService) CheckInWithTicket(ctx context.Context, seed, scannedBy string) (*TicketView, error) {
	view, err := s.InspectTicket(ctx, seed)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if err := s.admissible(view); err != nil {
		s.Log.LogCheckIn(view.Guest.ID, scannedBy, fmt.Sprintf("rejected: %s", apperr.CodeOf(err)))
		return nil, err
	}

	won, err := s.DB.MarkCheckedIn(ctx, view.Guest.ID, scannedBy, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.lostRace(ctx, view, scannedBy)
	}

	view.Guest.Status = models.GuestCheckedIn
	view.Guest.CheckInTime = &now
	view.Guest.UpdatedBy = scannedBy
	s.Log.LogCheckIn(view.Guest.ID, scannedBy, "checked in")
	return view, nil
}

func (s *TicketService) admissible(view *TicketView) error {
	guest, event := view.Guest, view.Event

	switch {
	case guest.Status == models.GuestCheckedIn:
		return apperr.New(apperr.GuestAlreadyCheckedIn, "guest already checked in").WithContext(view)
	case guest.Status != models.GuestActive:
		return apperr.New(apperr.GuestNotActive, "guest is not active").WithContext(view)
	case event.Status != models.EventActive:
		return apperr.New(apperr.EventNotActive, "event is not active").WithContext(view)
	case s.Now().Before(event.Date.Add(-s.GraceWindow)):
		return apperr.New(apperr.EventNotStarted, "event has not started").WithContext(view)
	}
	return nil
}

// lostRace re-reads a guest whose conditional update matched nothing and
// reports the state another writer left it in.
func (s *TicketService) lostRace(ctx context.Context, view *TicketView, scannedBy string) error {
	fresh, err := s.DB.GuestByID(ctx, view.Guest.ID)
	if err != nil {
		return err
	}
	view.Guest = fresh
	s.Log.LogCheckIn(fresh.ID, scannedBy, fmt.Sprintf("lost race, guest is %s", fresh.Status))

	if fresh.Status == models.GuestCheckedIn {
		return apperr.New(apperr.GuestAlreadyCheckedIn, "guest already checked in").WithContext(view)
	}
	return apperr.New(apperr.GuestNotActive, "guest is not active").WithContext(view)
}
