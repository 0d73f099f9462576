package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"nongxian/utils"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler handles POST /api/auth/login.
func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var c credentials
	if err := utils.DecodeJSON(r, &c); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	session, err := s.Login(ctx, c.Email, c.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, session)
}

// MeHandler handles GET /api/auth/me.
func (s *Service) MeHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, perms, err := s.Me(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"user": user, "permissions": perms})
}

func (s *Service) ListUsersHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	users, err := s.ListUsers(ctx)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, users)
}

func (s *Service) CreateUserHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in UserInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := s.CreateUser(ctx, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusCreated, user)
}

func (s *Service) UpdateUserHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var p UserPatch
	if err := utils.DecodeJSON(r, &p); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := s.UpdateUser(ctx, ps.ByName("uid"), p)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, user)
}

func (s *Service) DeleteUserHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.DeleteUser(ctx, ps.ByName("uid"), utils.GetUserIDFromRequest(r)); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, nil)
}
