package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"nongxian/apperr"
	"nongxian/mailer"
	"nongxian/utils"
)

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

// sendTimeout covers attachment downloads and every SMTP attempt.
const sendTimeout = 60 * time.Second

// Handler serves the relay on "/" for POST, JSONP GET, CORS preflight and a
// plain GET health check.
func (r *Relay) Handler() http.Handler {
	router := httprouter.New()
	router.POST("/", r.postHandler)
	router.GET("/", r.getHandler)
	router.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}).Handler(router)
}

func (r *Relay) deliver(ctx context.Context, msg mailer.Message) (int, mailer.Response) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	res, err := r.Send(ctx, msg)
	if err != nil {
		return apperr.HTTPStatus(apperr.KindOf(err)), mailer.Response{Message: apperr.MessageOf(err, "郵件寄送失敗")}
	}
	return http.StatusOK, mailer.Response{Success: true, Message: "郵件已寄出", Data: &res}
}

func decodePayload(raw []byte) (mailer.Message, error) {
	var msg mailer.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, apperr.New(apperr.Validation, "請求格式錯誤", err)
	}
	return msg, nil
}

// postHandler takes a JSON body, or a form with the JSON in "payload".
func (r *Relay) postHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var raw []byte
	ct, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		raw = []byte(req.FormValue("payload"))
	default:
		b, err := io.ReadAll(io.LimitReader(req.Body, 2*MaxBodyLength))
		if err != nil {
			utils.RespondWithJSON(w, http.StatusBadRequest, mailer.Response{Message: "請求格式錯誤"})
			return
		}
		raw = b
	}

	msg, err := decodePayload(raw)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, mailer.Response{Message: apperr.MessageOf(err, "請求格式錯誤")})
		return
	}
	status, resp := r.deliver(req.Context(), msg)
	utils.RespondWithJSON(w, status, resp)
}

// getHandler answers health checks, and JSONP sends when "payload" is set.
func (r *Relay) getHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	q := req.URL.Query()
	if len(q) == 0 {
		utils.RespondWithJSON(w, http.StatusOK, mailer.Response{Success: true, Message: "Email relay is running"})
		return
	}

	callback := q.Get("callback")
	if callback != "" && !callbackPattern.MatchString(callback) {
		utils.RespondWithJSON(w, http.StatusBadRequest, mailer.Response{Message: "callback 名稱無效"})
		return
	}

	status := http.StatusBadRequest
	resp := mailer.Response{Message: "缺少 payload"}
	if payload := q.Get("payload"); payload != "" {
		if msg, err := decodePayload([]byte(payload)); err != nil {
			resp = mailer.Response{Message: apperr.MessageOf(err, "請求格式錯誤")}
		} else {
			status, resp = r.deliver(req.Context(), msg)
		}
	}

	if callback == "" {
		utils.RespondWithJSON(w, status, resp)
		return
	}
	// script tags cannot see status codes, so JSONP always answers 200
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s(%s);", callback, strings.TrimSpace(string(body)))
}
