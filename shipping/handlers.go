package shipping

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"nongxian/apperr"
	"nongxian/utils"
)

// shipTimeout leaves room for the mail relay's own timeout.
const shipTimeout = 45 * time.Second

type shipRequest struct {
	Form
	Notify bool `json:"notify"`
}

// ShipHandler records a shipment: {carrier, trackingNumber,
// estimatedDelivery, notes, notify}.
func (s *Service) ShipHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), shipTimeout)
	defer cancel()

	var req shipRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	res, err := s.Ship(ctx, ps.ByName("id"), req.Form, req.Notify)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, res)
}

// LabelHandler streams the shipping label PDF.
func (s *Service) LabelHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := s.orders.GetByID(ctx, ps.ByName("id"))
	if apperr.Is(err, apperr.NotFound) {
		err = apperr.NotFoundError("找不到訂單", err)
	}
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	pdf, err := s.Label(o)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=label-"+o.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
