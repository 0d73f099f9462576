package utils

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"nongxian/apperr"
)

type M map[string]any

// Envelope is the {success, data|error} shape every API response uses.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Println("RespondWithJSON encode error:", err)
	}
}

func RespondWithSuccess(w http.ResponseWriter, statusCode int, data any) {
	RespondWithJSON(w, statusCode, Envelope{Success: true, Data: data})
}

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, Envelope{Success: false, Error: msg})
}

// RespondWithAppError picks the status code from the error kind. Internal
// errors never leak their cause to the client.
func RespondWithAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal || kind == apperr.Transport {
		log.Printf("request failed: %v", err)
	}
	RespondWithError(w, apperr.HTTPStatus(kind), apperr.MessageOf(err, "系統發生錯誤，請稍後再試"))
}

// DecodeJSON reads a JSON body into v, capped at 1 MB.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.New(apperr.Validation, "請求格式錯誤", err)
	}
	return nil
}
