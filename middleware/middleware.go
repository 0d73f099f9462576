package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"

	"nongxian/globals"
	"nongxian/permissions"
	"nongxian/utils"
)

// Claims is the bearer token payload issued by auth.Login. Permissions holds
// only the explicit grants; role defaults are added when checking pages.
type Claims struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// NewToken signs claims for the user, valid for ttl.
func NewToken(c Claims, ttl time.Duration, now time.Time) (string, error) {
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   c.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(globals.JwtSecret)
}

// ValidateJWT parses an Authorization header value ("Bearer <token>").
func ValidateJWT(header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("invalid token format")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return globals.JwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func withClaims(r *http.Request, c *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, c.Role)
	ctx = context.WithValue(ctx, globals.PermissionsKey, c.Permissions)
	return r.WithContext(ctx)
}

func Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		if header == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "請先登入")
			return
		}
		claims, err := ValidateJWT(header)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "登入已失效，請重新登入")
			return
		}
		next(w, withClaims(r, claims), ps)
	}
}

// OptionalAuth attaches the user when a valid token is present and proceeds
// either way.
func OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if claims, err := ValidateJWT(r.Header.Get("Authorization")); err == nil {
			r = withClaims(r, claims)
		}
		next(w, r, ps)
	}
}

// RequirePage authenticates and then checks the page's capability
// requirement against the token's role and explicit permissions.
func RequirePage(page string) Middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return Authenticate(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			role := utils.GetRoleFromRequest(r)
			explicit, _ := r.Context().Value(globals.PermissionsKey).([]string)
			if !permissions.Allowed(role, explicit, true, page) {
				utils.RespondWithError(w, http.StatusForbidden, "權限不足")
				return
			}
			next(w, r, ps)
		})
	}
}

type Middleware func(httprouter.Handle) httprouter.Handle

// Chain applies middlewares so the first one listed runs first.
func Chain(mws ...Middleware) Middleware {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
