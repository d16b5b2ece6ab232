package cart

import (
	"context"
	"net/http"
	"time"

	"agromart/models"
	"agromart/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func respondCart(w http.ResponseWriter, r *http.Request, items []models.CartItem, err error) {
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "cartItems": items})
}

// POST /api/cart/add
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Product models.CartItem `json:"product"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	items, err := h.svc.Add(ctx, utils.GetUserIDFromRequest(r), body.Product)
	respondCart(w, r, items, err)
}

// POST /api/cart/update-cart
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	items, err := h.svc.UpdateQuantity(ctx, utils.GetUserIDFromRequest(r), body.ProductID, body.Quantity)
	respondCart(w, r, items, err)
}

// POST /api/cart/remove
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		ProductID string `json:"productId"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	items, err := h.svc.Remove(ctx, utils.GetUserIDFromRequest(r), body.ProductID)
	respondCart(w, r, items, err)
}

// GET /api/cart/get-cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	items, err := h.svc.Get(ctx, utils.GetUserIDFromRequest(r))
	respondCart(w, r, items, err)
}
