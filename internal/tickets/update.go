package tickets

import (
	"context"
	"strings"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"
)

// Update is one permitted change to a guest. The set is closed: status can
// only change through check-in or archiving.
type Update interface {
	apply(ctx context.Context, s *TicketService, g *models.Guest) (columns []string, err error)
}

type Rename struct {
	FirstName string
	LastName  string
}

func (u Rename) apply(_ context.Context, _ *TicketService, g *models.Guest) ([]string, error) {
	first, last := strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName)
	if first == "" && last == "" {
		return nil, apperr.New(apperr.Invalid, "rename needs a first or last name")
	}
	if first != "" {
		g.FirstName = first
	}
	if last != "" {
		g.LastName = last
	}
	return []string{"first_name", "last_name"}, nil
}

// SetTier changes the admission tier, refusing to go below what the guest's
// order paid for.
type SetTier struct {
	Tier models.AdmissionTier
}

func (u SetTier) apply(ctx context.Context, s *TicketService, g *models.Guest) ([]string, error) {
	if !u.Tier.Valid() {
		return nil, apperr.Newf(apperr.Invalid, "invalid admission tier %q", u.Tier)
	}
	if u.Tier == g.AdmissionTier {
		return []string{"admission_tier"}, nil
	}
	floor, err := s.DB.MinimumTier(ctx, g)
	if err != nil {
		return nil, err
	}
	if u.Tier.Rank() < floor.Rank() {
		return nil, apperr.Newf(apperr.Invalid, "cannot downgrade %s guest to %s", floor, u.Tier).WithContext(g)
	}
	g.AdmissionTier = u.Tier
	return []string{"admission_tier"}, nil
}

type SetMeta struct {
	Meta map[string]any
}

func (u SetMeta) apply(_ context.Context, _ *TicketService, g *models.Guest) ([]string, error) {
	if u.Meta == nil {
		u.Meta = map[string]any{}
	}
	g.Meta = u.Meta
	return []string{"meta"}, nil
}

// UpdateGuest applies updates to an active guest in one conditional write.
func (s *TicketService) UpdateGuest(ctx context.Context, id, updatedBy string, updates ...Update) (*models.Guest, error) {
	if len(updates) == 0 {
		return nil, apperr.New(apperr.Invalid, "no changes given")
	}

	guest, err := s.DB.GuestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if guest.Status != models.GuestActive {
		return nil, apperr.Newf(apperr.NotPermitted, "guest is %s", guest.Status).WithContext(guest)
	}

	var columns []string
	for _, u := range updates {
		cols, err := u.apply(ctx, s, guest)
		if err != nil {
			return nil, err
		}
		columns = append(columns, cols...)
	}

	guest.UpdatedBy = updatedBy
	guest.Updated = s.Now()
	ok, err := s.DB.UpdateGuest(ctx, guest, dedupe(columns)...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.NotPermitted, "guest is no longer active").WithContext(guest)
	}
	return guest, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
