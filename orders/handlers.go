package orders

import (
	"context"
	"net/http"
	"time"

	"agromart/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /api/order/place-order
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req PlaceRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	orders, err := h.svc.Place(ctx, utils.GetUserIDFromRequest(r), req)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"message": "Order placed successfully",
		"orders":  orders,
		"count":   len(orders),
	})
}

// GET /api/order/user-orders
func (h *Handler) UserOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orders, err := h.svc.UserOrders(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "count": len(orders), "orders": orders})
}

// GET /api/order/farmer-orders?status=
func (h *Handler) FarmerOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orders, err := h.svc.FarmerOrders(ctx, utils.GetUserIDFromRequest(r), r.URL.Query().Get("status"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "count": len(orders), "orders": orders})
}

// PATCH /api/order/:orderId/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Status string `json:"status"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	order, err := h.svc.UpdateStatus(ctx, ps.ByName("orderId"), utils.GetUserIDFromRequest(r), body.Status)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": order})
}
