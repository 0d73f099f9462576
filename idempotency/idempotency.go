// Package idempotency replays the stored response of a mutating request
// when a client retries it with the same Idempotency-Key.
package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"nongxian/apperr"
	"nongxian/models"
	"nongxian/store"
	"nongxian/utils"
)

const Header = "Idempotency-Key"

const defaultTTL = 24 * time.Hour

type Guard struct {
	records store.Repository[models.IdempotencyRecord]
	ttl     time.Duration
	now     func() time.Time
}

func New(records store.Repository[models.IdempotencyRecord]) *Guard {
	return &Guard{records: records, ttl: defaultTTL, now: time.Now}
}

func computeRequestHash(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter passes the response through while keeping a copy.
type captureWriter struct {
	http.ResponseWriter
	status      int
	buf         bytes.Buffer
	wroteHeader bool
}

func (c *captureWriter) WriteHeader(status int) {
	if !c.wroteHeader {
		c.status = status
		c.wroteHeader = true
		c.ResponseWriter.WriteHeader(status)
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Wrap guards next. Without the header requests pass through. The first
// request with a key runs and its response is stored; a repeat with the
// same body gets the stored response, a different body gets 409, and a
// repeat while the first is still running gets 409 as well. Server errors
// are not stored so the client can retry.
func (g *Guard) Wrap(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get(Header)
		if key == "" {
			next(w, r, ps)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "請求格式錯誤")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		ctx := r.Context()
		userID := utils.GetUserIDFromRequest(r)
		hash := computeRequestHash(r, body, userID)
		now := g.now()
		rec := models.IdempotencyRecord{
			Key:         key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: hash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(g.ttl),
		}

		err = g.records.AddWithID(ctx, key, rec)
		if apperr.Is(err, apperr.Conflict) {
			existing, ferr := g.records.GetByID(ctx, key)
			switch {
			case ferr != nil:
				utils.RespondWithAppError(w, apperr.InternalError("idempotency lookup error", ferr))
				return
			case existing.ExpiresAt.Before(now):
				// expired but not yet swept; start over
				if derr := g.records.Delete(ctx, key); derr != nil {
					utils.RespondWithAppError(w, apperr.InternalError("idempotency lookup error", derr))
					return
				}
				err = g.records.AddWithID(ctx, key, rec)
			case existing.RequestHash != hash:
				utils.RespondWithError(w, http.StatusConflict, "Idempotency-Key 已用於其他請求")
				return
			case existing.Status == 0:
				utils.RespondWithError(w, http.StatusConflict, "相同請求正在處理中")
				return
			default:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Status)
				io.WriteString(w, existing.Body)
				return
			}
		}
		if err != nil {
			utils.RespondWithAppError(w, apperr.InternalError("idempotency lookup error", err))
			return
		}

		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next(cw, r, ps)

		if cw.status >= http.StatusInternalServerError {
			if err := g.records.Delete(ctx, key); err != nil {
				log.Printf("idempotency: release %s: %v", key, err)
			}
			return
		}
		err = g.records.Update(ctx, key, map[string]any{"status": cw.status, "body": cw.buf.String()})
		if err != nil {
			log.Printf("idempotency: store response for %s: %v", key, err)
		}
	}
}
