package orders

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"nongxian/apperr"
	"nongxian/utils"
)

// submitTimeout leaves room for the mail relay's own timeout.
const submitTimeout = 45 * time.Second

type stepResponse struct {
	Valid  bool        `json:"valid"`
	Errors FieldErrors `json:"errors,omitempty"`
	Next   Step        `json:"next,omitempty"`
	Quote  any         `json:"quote,omitempty"`
}

// ValidateStepHandler validates one wizard step. The wizard state lives in
// the storefront, so each step is checked on its own; the confirmation step
// prices the full submission.
func (s *Service) ValidateStepHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	switch Step(ps.ByName("step")) {
	case StepShipping:
		var f ShippingForm
		if err := utils.DecodeJSON(r, &f); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		methods, err := s.catalog.EnabledDeliveryMethods(ctx)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		errs := ValidateShipping(f, deliveryIDs(methods))
		utils.RespondWithSuccess(w, http.StatusOK, stepResult(errs, StepPayment))

	case StepPayment:
		var f PaymentForm
		if err := utils.DecodeJSON(r, &f); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		methods, err := s.catalog.EnabledPaymentMethods(ctx)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		errs := ValidatePayment(f, paymentIDs(methods))
		utils.RespondWithSuccess(w, http.StatusOK, stepResult(errs, StepConfirmation))

	case StepConfirmation:
		var sub Submission
		if err := utils.DecodeJSON(r, &sub); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		s.withUser(r, &sub)
		quote, err := s.Quote(ctx, sub)
		if apperr.Is(err, apperr.Validation) {
			utils.RespondWithSuccess(w, http.StatusOK, stepResponse{Valid: false, Errors: FieldErrors{"form": apperr.MessageOf(err, "")}})
			return
		}
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, stepResponse{Valid: true, Quote: quote})

	default:
		utils.RespondWithError(w, http.StatusNotFound, "未知的結帳步驟")
	}
}

func stepResult(errs FieldErrors, next Step) stepResponse {
	if len(errs) > 0 {
		return stepResponse{Valid: false, Errors: errs}
	}
	return stepResponse{Valid: true, Next: next}
}

// withUser takes the user from the token only; a userId in the body is
// ignored so guests cannot borrow another account's order history or
// coupon allowance.
func (s *Service) withUser(r *http.Request, sub *Submission) {
	sub.UserID = utils.GetUserIDFromRequest(r)
}

// SubmitHandler places the order and answers {success, orderId, order, emailSent}.
func (s *Service) SubmitHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()

	var sub Submission
	if err := utils.DecodeJSON(r, &sub); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	s.withUser(r, &sub)

	res, err := s.Submit(ctx, sub)
	if err != nil {
		if !apperr.Is(err, apperr.Validation) {
			log.Println("SubmitOrder error:", err)
		}
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, res)
}

// MyOrdersHandler lists the signed-in user's orders.
func (s *Service) MyOrdersHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := s.ListByUser(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, list)
}

// TrackHandler lets a shopper look up an order by id and the email used at
// checkout.
func (s *Service) TrackHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	o, err := s.Get(ctx, ps.ByName("id"))
	if err == nil && !strings.EqualFold(o.CustomerEmail, email) {
		err = apperr.NotFoundError("找不到訂單", nil)
	}
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, o)
}

// ListHandler serves the back-office order list; ?status= filters.
func (s *Service) ListHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := s.List(ctx, r.URL.Query().Get("status"), utils.ParseLimit(r, 100, 1000))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, list)
}

func (s *Service) UserOrdersHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := s.ListByUser(ctx, ps.ByName("uid"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, list)
}

func (s *Service) GetHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := s.Get(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, o)
}

func (s *Service) UpdateStatusHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Status string `json:"status"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := s.UpdateStatus(ctx, ps.ByName("id"), body.Status); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"id": ps.ByName("id"), "status": body.Status})
}

func (s *Service) UpdatePaymentStatusHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := s.UpdatePaymentStatus(ctx, ps.ByName("id"), body.PaymentStatus); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"id": ps.ByName("id"), "paymentStatus": body.PaymentStatus})
}

func (s *Service) DeleteHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.Delete(ctx, ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"deleted": ps.ByName("id")})
}
