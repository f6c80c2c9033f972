package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"atelier-be/internal/dashboard"
	"atelier-be/internal/order"
)

const maxBodyBytes = 1 << 20

type OrderHandler struct {
	orders order.Service
}

func NewOrderHandler(orders order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in order.CreateOrderInput
	if err := decodeBody(w, r, &in); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := h.orders.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, order.CreateOrderResponse{
		Message: "order created",
		OrderID: orderID,
	})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, order.ToOrderResponse(o))
}

func (h *OrderHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "user_id is required", Fields: []string{"user_id"}})
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "user_id must be an integer", Fields: []string{"user_id"}})
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, order.ToOrderResponses(orders))
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, order.ToOrderResponses(orders))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
		writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, MessageResponse{Message: "status updated"})
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), orderID); err != nil {
		writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, MessageResponse{Message: "order deleted"})
}

type DashboardHandler struct {
	stats dashboard.Service
}

func NewDashboardHandler(stats dashboard.Service) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteJSONError(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}
