// Package farms serves the farmer dashboard and order receipts.
package farms

import (
	"context"
	"net/http"
	"time"

	"agromart/apperr"
	"agromart/models"
	"agromart/utils"

	"github.com/julienschmidt/httprouter"
)

type OrderReader interface {
	ForParticipant(ctx context.Context, orderRef, userID string) (models.OrderView, error)
	FarmerOrders(ctx context.Context, farmerID, status string) ([]models.OrderView, error)
}

type Handler struct {
	orders OrderReader
	signer *Signer
	now    func() time.Time
}

func NewHandler(orders OrderReader, signer *Signer) *Handler {
	return &Handler{orders: orders, signer: signer, now: time.Now}
}

// GET /api/farm/dashboard
func (h *Handler) GetFarmDash(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orders, err := h.orders.FarmerOrders(ctx, utils.GetUserIDFromRequest(r), "")
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "dashboard": Summarize(orders)})
}

// GET /api/receipts/:orderId
func (h *Handler) DownloadReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.orders.ForParticipant(ctx, ps.ByName("orderId"), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	pdf, err := RenderReceipt(order, h.signer.Payload(order.OrderID, h.now()))
	if err != nil {
		utils.RespondWithAppError(w, r, apperr.Wrap(apperr.KindInternal, err, "failed to generate receipt"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+order.OrderID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// POST /api/receipts/verify
// Used by delivery staff scanning a receipt QR code.
func (h *Handler) VerifyReceipt(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Payload string `json:"payload"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	orderID, issued, ok := h.signer.Verify(body.Payload)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "receipt signature is not valid")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "orderId": orderID, "issuedAt": issued})
}
