package setup_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"nongxian/apperr"
	"nongxian/config"
	"nongxian/db"
	"nongxian/defaults"
	"nongxian/models"
	"nongxian/setup"
	"nongxian/store"
)

var now = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

var admin = setup.AdminAccount{Email: "Owner@Nongxian.tw", Password: "s3cret-pass", DisplayName: "店長"}

func newInitializer() (*setup.Initializer, *db.Repos) {
	repos := db.NewMemoryRepos()
	mail := config.MailConfig{RelayURL: "http://relay.local/", FromEmail: "service@nongxian.tw", FromName: "農鮮市集", AdminEmail: "admin@nongxian.tw"}
	return setup.New(repos, mail).WithClock(func() time.Time { return now }), repos
}

func count[T any](t *testing.T, repo store.Repository[T]) int {
	t.Helper()
	all, err := repo.GetAll(context.Background(), "", store.Asc, 0)
	require.NoError(t, err)
	return len(all)
}

func TestInitializeAll(t *testing.T) {
	in, repos := newInitializer()
	ctx := context.Background()

	var events []setup.Progress
	require.NoError(t, in.InitializeAll(ctx, admin, func(p setup.Progress) { events = append(events, p) }))

	require.Len(t, events, 2*setup.TotalSteps)
	for i, ev := range events {
		assert.Equal(t, i/2+1, ev.Step)
		assert.Equal(t, setup.TotalSteps, ev.Total)
		if i%2 == 0 {
			assert.Equal(t, setup.StatusProcessing, ev.Status)
		} else {
			assert.Equal(t, setup.StatusCompleted, ev.Status)
		}
	}
	assert.Equal(t, 100, events[len(events)-1].Progress)

	assert.Equal(t, len(defaults.Categories(now)), count(t, repos.Categories))
	assert.Equal(t, len(defaults.Products(now)), count(t, repos.Products))
	assert.Equal(t, 3, count(t, repos.Coupons))
	assert.Equal(t, 5, count(t, repos.PaymentMethods))
	assert.Equal(t, 3, count(t, repos.EmailTemplates))

	settings, err := repos.EmailSettings.GetByID(ctx, defaults.EmailSettingsID)
	require.NoError(t, err)
	assert.Equal(t, "admin@nongxian.tw", settings.AdminEmail)

	logistics, err := repos.Logistics.GetByID(ctx, defaults.LogisticsSettingsID)
	require.NoError(t, err)
	assert.NotEmpty(t, logistics.Carriers)

	coupon, err := repos.Coupons.GetByID(ctx, "WELCOME100")
	require.NoError(t, err)
	assert.Equal(t, float64(100), coupon.Value)

	admins, err := repos.Admins.GetWhere(ctx, "email", store.Eq, "owner@nongxian.tw")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	a := admins[0]
	assert.True(t, strings.HasPrefix(a.UID, "admin-"))
	assert.Equal(t, models.RoleAdmin, a.Role)
	assert.True(t, a.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(admin.Password)))

	status, err := in.CheckSystemInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, status.Initialized)
}

func TestInitializeAll_RefusesWhenInitialized(t *testing.T) {
	in, repos := newInitializer()
	ctx := context.Background()
	require.NoError(t, repos.Categories.AddWithID(ctx, "vegetable", models.Category{ID: "vegetable", Name: "蔬菜"}))

	called := false
	err := in.InitializeAll(ctx, admin, func(setup.Progress) { called = true })
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
	assert.Equal(t, setup.ErrInitialized, apperr.MessageOf(err, ""))
	assert.False(t, called)
}

func TestInitializeAll_FailingStepAborts(t *testing.T) {
	in, repos := newInitializer()
	ctx := context.Background()
	// a leftover product collides with the product seed
	first := defaults.Products(now)[0]
	require.NoError(t, repos.Products.AddWithID(ctx, first.ID, first))

	var events []setup.Progress
	err := in.InitializeAll(ctx, admin, func(p setup.Progress) { events = append(events, p) })
	require.Error(t, err)

	last := events[len(events)-1]
	assert.Equal(t, 3, last.Step)
	assert.Equal(t, setup.StatusError, last.Status)
	assert.Equal(t, "步驟 3（建立商品資料）失敗：資料已存在（p-cabbage）", last.Message)
	assert.Equal(t, last.Message, err.Error())
	for _, ev := range events {
		assert.LessOrEqual(t, ev.Step, 3)
	}

	// earlier steps stay in place, later ones never ran
	assert.Equal(t, len(defaults.Categories(now)), count(t, repos.Categories))
	assert.Equal(t, 1, count(t, repos.Admins))
	assert.Zero(t, count(t, repos.Coupons))
	assert.Zero(t, count(t, repos.PaymentMethods))
	_, err = repos.Logistics.GetByID(ctx, defaults.LogisticsSettingsID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestInitializeAll_RefusesWhenAdminExists(t *testing.T) {
	in, repos := newInitializer()
	ctx := context.Background()
	require.NoError(t, in.InitializeAll(ctx, admin, nil))

	// wiping the categories must not reopen setup
	cats, err := repos.Categories.GetAll(ctx, "", store.Asc, 0)
	require.NoError(t, err)
	for _, c := range cats {
		require.NoError(t, repos.Categories.Delete(ctx, c.ID))
	}

	intruder := setup.AdminAccount{Email: "attacker@evil.tw", Password: "hunter22"}
	err = in.InitializeAll(ctx, intruder, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	found, err := repos.Admins.GetWhere(ctx, "email", store.Eq, "attacker@evil.tw")
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, 1, count(t, repos.Admins))
}

func TestInitializeAll_InvalidAdmin(t *testing.T) {
	in, repos := newInitializer()

	err := in.InitializeAll(context.Background(), setup.AdminAccount{Email: "nope", Password: "123"}, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.Zero(t, count(t, repos.Admins))
	assert.Zero(t, count(t, repos.Categories))
}

func TestCheckSystemInitialized_EmptyProducts(t *testing.T) {
	in, repos := newInitializer()
	ctx := context.Background()
	for _, c := range defaults.Categories(now) {
		require.NoError(t, repos.Categories.AddWithID(ctx, c.ID, c))
	}
	for _, p := range defaults.PaymentMethods(now) {
		require.NoError(t, repos.PaymentMethods.AddWithID(ctx, p.ID, p))
	}

	status, err := in.CheckSystemInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, status.Initialized)
	assert.Equal(t, 5, status.Categories)
	assert.Zero(t, status.Products)
	assert.Equal(t, 5, status.PaymentMethods)
}

func TestInitializeHandler(t *testing.T) {
	in, _ := newInitializer()
	body, _ := json.Marshal(admin)

	rec := httptest.NewRecorder()
	in.InitializeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/setup/initialize", bytes.NewReader(body)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool             `json:"success"`
		Data    []setup.Progress `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 2*setup.TotalSteps)

	// a second run is refused
	rec = httptest.NewRecorder()
	in.InitializeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/setup/initialize", bytes.NewReader(body)), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), setup.ErrInitialized)
}

func TestWebSocketHandler_RejectsForeignOrigin(t *testing.T) {
	in, repos := newInitializer()
	in.WithOrigin("https://shop.nongxian.tw/")
	router := httprouter.New()
	router.GET("/api/setup/ws", in.WebSocketHandler)
	srv := httptest.NewServer(router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/setup/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, count(t, repos.Admins))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://shop.nongxian.tw"}})
	require.NoError(t, err)
	conn.Close()
}

func TestWebSocketHandler(t *testing.T) {
	in, _ := newInitializer()
	router := httprouter.New()
	router.GET("/api/setup/ws", in.WebSocketHandler)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/setup/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(admin))

	var frames []map[string]any
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		frames = append(frames, frame)
		if frame["done"] == true {
			break
		}
	}

	require.Len(t, frames, 2*setup.TotalSteps+1)
	assert.Equal(t, true, frames[len(frames)-1]["success"])
	assert.Equal(t, float64(setup.TotalSteps), frames[len(frames)-2]["step"])
}
