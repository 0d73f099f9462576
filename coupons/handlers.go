package coupons

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"nongxian/models"
	"nongxian/utils"
)

// CartRequest is the body of the storefront coupon calls. Subtotal is
// derived from the items when omitted.
type CartRequest struct {
	Code     string            `json:"code"`
	Items    []models.CartItem `json:"items"`
	Subtotal int               `json:"subtotal"`
	UserID   string            `json:"userId"`
}

func (req *CartRequest) normalize(r *http.Request) {
	if req.Subtotal <= 0 {
		req.Subtotal = models.Subtotal(req.Items)
	}
	if uid := utils.GetUserIDFromRequest(r); uid != "" {
		req.UserID = uid
	}
}

// ValidateHandler answers {valid, error, coupon} for the cart.
func ValidateHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var req CartRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		req.normalize(r)

		res, err := svc.Validate(ctx, req.Code, req.Items, req.Subtotal, req.UserID)
		if err != nil {
			log.Println("ValidateCoupon error:", err)
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, res)
	}
}

// ApplyHandler answers {success, discount, finalAmount, coupon, error}.
func ApplyHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var req CartRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		req.normalize(r)

		res, err := svc.Apply(ctx, req.Code, req.Items, req.Subtotal, req.UserID)
		if err != nil {
			log.Println("ApplyCoupon error:", err)
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, res)
	}
}

func ListHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		list, err := svc.List(ctx)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, list)
	}
}

func GetHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		c, err := svc.Get(ctx, ps.ByName("code"))
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, c)
	}
}

func CreateHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var c models.Coupon
		if err := utils.DecodeJSON(r, &c); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		created, err := svc.Create(ctx, c)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		log.Printf("coupon %s created", created.Code)
		utils.RespondWithSuccess(w, http.StatusCreated, created)
	}
}

func UpdateHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var c models.Coupon
		if err := utils.DecodeJSON(r, &c); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		updated, err := svc.Update(ctx, ps.ByName("code"), c)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, updated)
	}
}

func SetActiveHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var body struct {
			IsActive bool `json:"isActive"`
		}
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		if err := svc.SetActive(ctx, ps.ByName("code"), body.IsActive); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, utils.M{"code": NormalizeCode(ps.ByName("code")), "isActive": body.IsActive})
	}
}

func DeleteHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := svc.Delete(ctx, ps.ByName("code")); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, utils.M{"deleted": NormalizeCode(ps.ByName("code"))})
	}
}

func UsageHandler(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		logs, err := svc.Usage(ctx, ps.ByName("code"))
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, logs)
	}
}
