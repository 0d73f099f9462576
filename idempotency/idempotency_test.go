package idempotency_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	"nongxian/db"
	"nongxian/idempotency"
)

func TestGuard(t *testing.T) {
	repos := db.NewMemoryRepos()
	calls := 0
	h := idempotency.New(repos.Idempotency).Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"orderId":"ORD1"}`))
	})

	post := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
		if key != "" {
			req.Header.Set(idempotency.Header, key)
		}
		rec := httptest.NewRecorder()
		h(rec, req, nil)
		return rec
	}

	first := post("k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, first.Code)

	replay := post("k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	assert.Equal(t, http.StatusConflict, post("k1", `{"a":2}`).Code)
	assert.Equal(t, 1, calls)

	post("", `{"a":1}`)
	post("", `{"a":1}`)
	assert.Equal(t, 3, calls)
}

func TestGuard_ServerErrorNotStored(t *testing.T) {
	repos := db.NewMemoryRepos()
	fail := true
	h := idempotency.New(repos.Idempotency).Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{}`))
		req.Header.Set(idempotency.Header, "k2")
		rec := httptest.NewRecorder()
		h(rec, req, nil)
		return rec.Code
	}

	assert.Equal(t, http.StatusInternalServerError, post())
	fail = false
	assert.Equal(t, http.StatusCreated, post())
}
