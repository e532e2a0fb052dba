package ticket_api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/auth"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/tickets"
	"ms-boxoffice/internal/tickets/db"
	"ms-boxoffice/internal/utils"

	"github.com/go-chi/chi/v5"
)

type TicketService interface {
	CheckInWithTicket(ctx context.Context, seed, scannedBy string) (*tickets.TicketView, error)
	InspectTicket(ctx context.Context, seed string) (*tickets.TicketView, error)
	CreateGuest(ctx context.Context, in tickets.NewGuest) (*models.Guest, error)
	UpdateGuest(ctx context.Context, id, updatedBy string, updates ...tickets.Update) (*models.Guest, error)
	ArchiveGuest(ctx context.Context, id, updatedBy string) (*models.Guest, error)
	OrderTickets(ctx context.Context, orderID string) ([]tickets.OrderTicket, error)
	Attendance(ctx context.Context, eventID string) (*db.Attendance, error)
}

type QRGenerator interface {
	PNG(seed string) ([]byte, error)
}

type PDFRenderer interface {
	Render(list []tickets.OrderTicket) ([]byte, error)
}

type Handler struct {
	TicketService TicketService
	QRGenerator   QRGenerator
	PDF           PDFRenderer
	Logger        *logger.Logger
}

func NewHandler(svc TicketService, qr QRGenerator, pdf PDFRenderer, log *logger.Logger) *Handler {
	return &Handler{TicketService: svc, QRGenerator: qr, PDF: pdf, Logger: log}
}

type ticketRequest struct {
	TicketToken string `json:"ticketToken"`
}

func (r ticketRequest) seed() (string, error) {
	seed := strings.TrimSpace(r.TicketToken)
	if seed == "" {
		return "", apperr.New(apperr.Invalid, "ticketToken is required")
	}
	return seed, nil
}

// CheckIn admits the holder of a ticket.
// Expected POST request body: {"ticketToken": "<seed>"}
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	seed, err := req.seed()
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	view, err := h.TicketService.CheckInWithTicket(r.Context(), seed, auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, "check-in", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

// InspectTicket returns the guest and event behind a ticket without
// checking it in.
func (h *Handler) InspectTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	seed, err := req.seed()
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	view, err := h.TicketService.InspectTicket(r.Context(), seed)
	if err != nil {
		h.writeError(w, "inspect", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

// TicketQR renders the ticket seed as a PNG QR code.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	seed := chi.URLParam(r, "seed")
	if seed == "" {
		utils.WriteError(w, apperr.New(apperr.Invalid, "seed is required"))
		return
	}

	png, err := h.QRGenerator.PNG(seed)
	if err != nil {
		h.writeError(w, "qr", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type createGuestRequest struct {
	FirstName     string               `json:"firstName"`
	LastName      string               `json:"lastName"`
	EventID       string               `json:"eventId"`
	AdmissionTier models.AdmissionTier `json:"admissionTier"`
	Meta          map[string]any       `json:"meta"`
}

// CreateGuest adds a comp guest on behalf of the authenticated staff user.
func (h *Handler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req createGuestRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if req.AdmissionTier == "" {
		req.AdmissionTier = models.TierGeneral
	}

	guest, err := h.TicketService.CreateGuest(r.Context(), tickets.NewGuest{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		EventID:       req.EventID,
		AdmissionTier: req.AdmissionTier,
		CreatedBy:     auth.UserID(r.Context()),
		CreatedReason: models.ReasonComp,
		Meta:          req.Meta,
	})
	if err != nil {
		h.writeError(w, "create guest", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, guest)
}

// updateGuestRequest only carries the fields staff may change. Status is not
// among them.
type updateGuestRequest struct {
	FirstName     *string               `json:"firstName"`
	LastName      *string               `json:"lastName"`
	AdmissionTier *models.AdmissionTier `json:"admissionTier"`
	Meta          map[string]any        `json:"meta"`
}

func (req updateGuestRequest) updates() []tickets.Update {
	var updates []tickets.Update
	if req.FirstName != nil || req.LastName != nil {
		var rename tickets.Rename
		if req.FirstName != nil {
			rename.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			rename.LastName = *req.LastName
		}
		updates = append(updates, rename)
	}
	if req.AdmissionTier != nil {
		updates = append(updates, tickets.SetTier{Tier: *req.AdmissionTier})
	}
	if req.Meta != nil {
		updates = append(updates, tickets.SetMeta{Meta: req.Meta})
	}
	return updates
}

func (h *Handler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	var req updateGuestRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	guest, err := h.TicketService.UpdateGuest(r.Context(), chi.URLParam(r, "id"), auth.UserID(r.Context()), req.updates()...)
	if err != nil {
		h.writeError(w, "update guest", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, guest)
}

func (h *Handler) ArchiveGuest(w http.ResponseWriter, r *http.Request) {
	guest, err := h.TicketService.ArchiveGuest(r.Context(), chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, "archive guest", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, guest)
}

// OrderTickets lists the scannable tickets of an order. Access is checked
// by the route's middleware.
func (h *Handler) OrderTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.TicketService.OrderTickets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "order tickets", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"tickets": list})
}

// OrderTicketsPDF serves the order's tickets as a printable download.
func (h *Handler) OrderTicketsPDF(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	list, err := h.TicketService.OrderTickets(r.Context(), orderID)
	if err != nil {
		h.writeError(w, "order tickets", err)
		return
	}
	if len(list) == 0 {
		utils.WriteError(w, apperr.Newf(apperr.NotFound, "order %s has no tickets", orderID))
		return
	}

	doc, err := h.PDF.Render(list)
	if err != nil {
		h.writeError(w, "ticket pdf", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tickets-%s.pdf"`, orderID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

type attendanceResponse struct {
	*db.Attendance
	Expected int `json:"expected"`
}

// EventAttendance reports guest counts by status for an event.
func (h *Handler) EventAttendance(w http.ResponseWriter, r *http.Request) {
	att, err := h.TicketService.Attendance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "attendance", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, attendanceResponse{Attendance: att, Expected: att.Expected()})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	if apperr.CodeOf(err) == apperr.Unknown {
		h.Logger.Error("TICKETS", fmt.Sprintf("%s failed: %v", op, err))
	}
	utils.WriteError(w, err)
}

// RegisterDoorRoutes mounts the scanning endpoints. Callers put staff auth in
// front of r; scan limits each staff user's check-in rate.
func (h *Handler) RegisterDoorRoutes(r chi.Router, scan func(http.Handler) http.Handler) {
	r.With(scan).Post("/check-ins", h.CheckIn)
	r.With(scan).Post("/check-ins/inspect", h.InspectTicket)
	r.Get("/events/{id}/attendance", h.EventAttendance)
}
