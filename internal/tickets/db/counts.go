package db

import (
	"context"
	"fmt"

	"ms-boxoffice/internal/models"
)

// Attendance is the door tally for one event.
type Attendance struct {
	EventID   string `json:"eventId"`
	Active    int    `json:"active"`
	CheckedIn int    `json:"checkedIn"`
	Archived  int    `json:"archived"`
}

func (a Attendance) Expected() int {
	return a.Active + a.CheckedIn
}

// AttendanceForEvent counts guests of an event by status.
func (d *DB) AttendanceForEvent(ctx context.Context, eventID string) (*Attendance, error) {
	var rows []struct {
		Status models.GuestStatus `bun:"status"`
		Count  int                `bun:"count"`
	}
	err := d.Bun.NewSelect().
		Model((*models.Guest)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count attendance: %w", err)
	}

	a := &Attendance{EventID: eventID}
	for _, r := range rows {
		switch r.Status {
		case models.GuestActive:
			a.Active = r.Count
		case models.GuestCheckedIn:
			a.CheckedIn = r.Count
		case models.GuestArchived:
			a.Archived = r.Count
		}
	}
	return a, nil
}
