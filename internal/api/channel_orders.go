package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kaleidoswap/desktop-app/internal/account"
	"github.com/kaleidoswap/desktop-app/internal/channelorder"
)

type createOrderRequest struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload"`
}

// selectedAccount resolves the current selection to an account, writing
// the error response itself when there is none.
func (s *Server) selectedAccount(w http.ResponseWriter, r *http.Request) (*account.Account, bool) {
	name, ok := s.selection.Get()
	if !ok {
		writeBadRequest(w, msgNoAccountSelected)
		return nil, false
	}
	a, err := s.accounts.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			s.selection.ClearIf(name)
			writeBadRequest(w, msgNoAccountSelected)
			return nil, false
		}
		s.writeAccountError(w, err, name)
		return nil, false
	}
	return a, true
}

// handleListChannelOrders returns the selected account's orders, newest first.
func (s *Server) handleListChannelOrders(w http.ResponseWriter, r *http.Request) {
	a, ok := s.selectedAccount(w, r)
	if !ok {
		return
	}
	orders, err := s.orders.ListByAccount(r.Context(), a.ID)
	if err != nil {
		s.logger.Error("listing channel orders", "account", a.Name, "error", err)
		writeInternalError(w, "failed to list channel orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

// handleCreateChannelOrder records an order for the selected account.
func (s *Server) handleCreateChannelOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := s.selectedAccount(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "order_id is required")
		return
	}

	order := channelorder.Order{
		AccountID: a.ID,
		OrderID:   req.OrderID,
		Status:    req.Status,
		Payload:   string(req.Payload),
	}
	if err := s.orders.Insert(r.Context(), &order); err != nil {
		s.logger.Error("inserting channel order", "account", a.Name, "order_id", req.OrderID, "error", err)
		writeInternalError(w, "failed to save channel order")
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// handleDeleteChannelOrder removes one of the selected account's orders.
func (s *Server) handleDeleteChannelOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := s.selectedAccount(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "orderID")
	if err := s.orders.Delete(r.Context(), a.ID, orderID); err != nil {
		if errors.Is(err, channelorder.ErrOrderNotFound) {
			writeNotFound(w, "channel order not found")
			return
		}
		s.logger.Error("deleting channel order", "account", a.Name, "order_id", orderID, "error", err)
		writeInternalError(w, "failed to delete channel order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
