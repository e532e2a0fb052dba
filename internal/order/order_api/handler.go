package order_api

import (
	"context"
	"fmt"
	"net/http"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/auth"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/order"
	"ms-boxoffice/internal/utils"

	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in order.CreateOrderInput) (*order.CreateOrderResult, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	RefundOrder(ctx context.Context, orderID, updatedBy string) (*models.Order, error)
	TransferTickets(ctx context.Context, orderID string, in order.TransferInput, updatedBy string) (*order.TransferResult, error)
}

type Handler struct {
	OrderService OrderService
	Logger       *logger.Logger
}

func NewHandler(svc OrderService, log *logger.Logger) *Handler {
	return &Handler{OrderService: svc, Logger: log}
}

type createOrderResponse struct {
	ConfirmationID string `json:"confirmationId"`
	OrderID        string `json:"orderId"`
	Token          string `json:"token"`
}

// CreateOrder charges the cart and answers with what the purchaser needs to
// find their tickets. Guests appear shortly after the response.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateOrderInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	res, err := h.OrderService.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, "create order", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, createOrderResponse{
		ConfirmationID: res.ConfirmationID,
		OrderID:        res.Order.ID,
		Token:          res.Token,
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.OrderService.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get order", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

// RefundOrder refunds or voids the order's charge and cancels it.
func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if _, err := h.OrderService.RefundOrder(r.Context(), orderID, auth.UserID(r.Context())); err != nil {
		h.writeError(w, "refund order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TransferTickets(w http.ResponseWriter, r *http.Request) {
	var req order.TransferInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	res, err := h.OrderService.TransferTickets(r.Context(), chi.URLParam(r, "id"), req, auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, "transfer tickets", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	if apperr.CodeOf(err) == apperr.Unknown {
		h.Logger.Error("API", fmt.Sprintf("%s failed: %v", op, err))
	}
	utils.WriteError(w, err)
}
