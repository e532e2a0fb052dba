package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/tickets/db"

	"github.com/google/uuid"
)

type DBLayer interface {
	InsertGuests(ctx context.Context, guests []models.Guest) error
	GuestByID(ctx context.Context, id string) (*models.Guest, error)
	GuestBySeed(ctx context.Context, seed string) (*models.Guest, error)
	EventByID(ctx context.Context, id string) (*models.Event, error)
	GuestsByOrder(ctx context.Context, orderID string, ids ...string) ([]models.Guest, error)
	MarkCheckedIn(ctx context.Context, id, scannedBy string, at time.Time) (bool, error)
	ArchiveGuests(ctx context.Context, ids []string, updatedBy string, at time.Time) (int64, error)
	UpdateGuest(ctx context.Context, guest *models.Guest, columns ...string) (bool, error)
	MinimumTier(ctx context.Context, guest *models.Guest) (models.AdmissionTier, error)
	AttendanceForEvent(ctx context.Context, eventID string) (*db.Attendance, error)
}

type TicketService struct {
	DB  DBLayer
	Log *logger.Logger

	// GraceWindow is how long before the event date a ticket may be scanned.
	GraceWindow time.Duration
	Now         func() time.Time
}

func NewTicketService(store DBLayer, graceWindow time.Duration, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:          store,
		Log:         log,
		GraceWindow: graceWindow,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// TicketView is the guest and event snapshot returned to door staff, and
// attached to every check-in failure.
type TicketView struct {
	Guest *models.Guest `json:"guest"`
	Event *models.Event `json:"event"`
}

type NewGuest struct {
	FirstName     string               `json:"firstName"`
	LastName      string               `json:"lastName"`
	EventID       string               `json:"eventId"`
	AdmissionTier models.AdmissionTier `json:"admissionTier"`
	OrderID       string               `json:"orderId,omitempty"`
	CreatedBy     string               `json:"createdBy,omitempty"`
	CreatedReason models.CreatedReason `json:"createdReason"`
	Meta          map[string]any       `json:"meta,omitempty"`
}

// CreateGuest validates and stores a single guest, typically a comp.
func (s *TicketService) CreateGuest(ctx context.Context, in NewGuest) (*models.Guest, error) {
	guest, err := BuildGuest(uuid.NewString(), in, s.Now())
	if err != nil {
		return nil, err
	}
	if _, err := s.DB.EventByID(ctx, guest.EventID); err != nil {
		return nil, err
	}

	if err := s.DB.InsertGuests(ctx, []models.Guest{*guest}); err != nil {
		return nil, fmt.Errorf("create guest: %w", err)
	}

	s.Log.Info("GUEST", fmt.Sprintf("Created %s guest %s for event %s", guest.CreatedReason, guest.ID, guest.EventID))
	return guest, nil
}

// BuildGuest validates in and returns an active guest with a fresh ticket
// seed.
func BuildGuest(id string, in NewGuest, now time.Time) (*models.Guest, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if first == "" || last == "" || in.EventID == "" || in.CreatedReason == "" {
		return nil, apperr.New(apperr.Invalid, "firstName, lastName, eventId and createdReason are required")
	}
	if !in.AdmissionTier.Valid() {
		return nil, apperr.Newf(apperr.Invalid, "invalid admission tier %q", in.AdmissionTier)
	}
	switch in.CreatedReason {
	case models.ReasonPurchase, models.ReasonTransfer:
		if in.OrderID == "" {
			return nil, apperr.Newf(apperr.Invalid, "orderId is required for %s guests", in.CreatedReason)
		}
	case models.ReasonComp:
	default:
		return nil, apperr.Newf(apperr.Invalid, "invalid created reason %q", in.CreatedReason)
	}

	seed, err := NewTicketSeed()
	if err != nil {
		return nil, err
	}

	meta := in.Meta
	if meta == nil {
		meta = map[string]any{}
	}

	return &models.Guest{
		ID:            id,
		FirstName:     first,
		LastName:      last,
		AdmissionTier: in.AdmissionTier,
		OrderID:       in.OrderID,
		EventID:       in.EventID,
		CreatedBy:     in.CreatedBy,
		CreatedReason: in.CreatedReason,
		TicketSeed:    seed,
		Status:        models.GuestActive,
		Meta:          meta,
		Created:       now,
		Updated:       now,
	}, nil
}

// CreateGuests stores a batch built by BuildGuest. Guests whose id already
// exists are left untouched.
func (s *TicketService) CreateGuests(ctx context.Context, inputs []NewGuest, ids []string) ([]models.Guest, error) {
	if len(inputs) != len(ids) {
		return nil, fmt.Errorf("create guests: %d inputs for %d ids", len(inputs), len(ids))
	}

	now := s.Now()
	guests := make([]models.Guest, 0, len(inputs))
	for i, in := range inputs {
		g, err := BuildGuest(ids[i], in, now)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *g)
	}

	if err := s.DB.InsertGuests(ctx, guests); err != nil {
		return nil, fmt.Errorf("create guests: %w", err)
	}
	return guests, nil
}

// ArchiveGuest retires a single active guest.
func (s *TicketService) ArchiveGuest(ctx context.Context, id, updatedBy string) (*models.Guest, error) {
	guest, err := s.DB.GuestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if guest.Status != models.GuestActive {
		return nil, apperr.Newf(apperr.NotPermitted, "guest is %s", guest.Status).WithContext(guest)
	}

	n, err := s.DB.ArchiveGuests(ctx, []string{id}, updatedBy, s.Now())
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.New(apperr.NotPermitted, "guest is no longer active").WithContext(guest)
	}

	guest.Status = models.GuestArchived
	guest.UpdatedBy = updatedBy
	return guest, nil
}

// InspectTicket looks up a ticket without changing it.
func (s *TicketService) InspectTicket(ctx context.Context, seed string) (*TicketView, error) {
	guest, err := s.DB.GuestBySeed(ctx, seed)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return nil, apperr.New(apperr.TicketNotFound, "ticket not found")
	}

	event, err := s.DB.EventByID(ctx, guest.EventID)
	if err != nil {
		return nil, err
	}
	return &TicketView{Guest: guest, Event: event}, nil
}

// OrderTicket is one scannable ticket of an order.
type OrderTicket struct {
	ID            string               `json:"id"`
	FirstName     string               `json:"firstName"`
	LastName      string               `json:"lastName"`
	AdmissionTier models.AdmissionTier `json:"admissionTier"`
	EventID       string               `json:"eventId"`
	EventName     string               `json:"eventName"`
	EventDate     time.Time            `json:"eventDate"`
	Status        models.GuestStatus   `json:"status"`
	QRPayload     string               `json:"qrPayload"`
}

// OrderTickets lists the non-archived tickets of an order.
func (s *TicketService) OrderTickets(ctx context.Context, orderID string) ([]OrderTicket, error) {
	guests, err := s.DB.GuestsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	events := map[string]*models.Event{}
	out := make([]OrderTicket, 0, len(guests))
	for _, g := range guests {
		if g.Status == models.GuestArchived {
			continue
		}
		event, ok := events[g.EventID]
		if !ok {
			if event, err = s.DB.EventByID(ctx, g.EventID); err != nil {
				return nil, err
			}
			events[g.EventID] = event
		}
		out = append(out, OrderTicket{
			ID:            g.ID,
			FirstName:     g.FirstName,
			LastName:      g.LastName,
			AdmissionTier: g.AdmissionTier,
			EventID:       event.ID,
			EventName:     event.Name,
			EventDate:     event.Date,
			Status:        g.Status,
			QRPayload:     g.TicketSeed,
		})
	}
	return out, nil
}

func (s *TicketService) Attendance(ctx context.Context, eventID string) (*db.Attendance, error) {
	if _, err := s.DB.EventByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.DB.AttendanceForEvent(ctx, eventID)
}
