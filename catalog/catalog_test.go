package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nongxian/apperr"
	"nongxian/catalog"
	"nongxian/db"
	"nongxian/defaults"
	"nongxian/models"
)

func TestLookups_FallBackToDefaults(t *testing.T) {
	c := catalog.New(db.NewMemoryRepos())
	ctx := context.Background()

	cr, err := c.Carrier(ctx, "tcat")
	require.NoError(t, err)
	assert.Equal(t, "黑貓宅急便", cr.Name)

	_, err = c.Carrier(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.Validation))

	m, err := c.DeliveryMethod(ctx, defaults.DeliveryHome)
	require.NoError(t, err)
	assert.Equal(t, 150, m.Fee)

	pm, err := c.EnabledPaymentMethods(ctx)
	require.NoError(t, err)
	assert.Len(t, pm, 5)
	assert.Equal(t, defaults.PaymentCreditCard, pm[0].ID)

	fee, err := c.AreaExtraFee(ctx, "澎湖縣")
	require.NoError(t, err)
	assert.Equal(t, 150, fee)
}

func TestLookups_StoredSettingsWin(t *testing.T) {
	repos := db.NewMemoryRepos()
	ctx := context.Background()
	s := defaults.Logistics(time.Now())
	s.Carriers = []models.Carrier{{Code: "tcat", Name: "黑貓", TrackingURL: "https://t.example/{}", Enabled: true}}
	s.DeliveryMethods[0].Enabled = false
	require.NoError(t, repos.Logistics.AddWithID(ctx, defaults.LogisticsSettingsID, s))

	c := catalog.New(repos)
	cr, err := c.Carrier(ctx, "tcat")
	require.NoError(t, err)
	assert.Equal(t, "黑貓", cr.Name)

	// carriers missing from the stored list still resolve from the defaults
	cr, err = c.Carrier(ctx, "hct")
	require.NoError(t, err)
	assert.Equal(t, "新竹物流", cr.Name)

	_, err = c.DeliveryMethod(ctx, s.DeliveryMethods[0].ID)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestProductResource_CreateUpdate(t *testing.T) {
	repos := db.NewMemoryRepos()
	res := catalog.Products(repos.Products)
	router := httprouter.New()
	router.POST("/products", res.Create())
	router.PUT("/products/:id", res.Update())

	body := `{"id":"p-tea","name":"阿里山烏龍","category":"processed","price":600,"stock":10,"isActive":true}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	bad := `{"id":"p-tea","name":"","category":"processed","price":600}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/products/p-tea", strings.NewReader(bad)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	edit := `{"name":"阿里山高山烏龍","category":"processed","price":650,"stock":8,"isActive":true}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/products/p-tea", strings.NewReader(edit)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Success bool           `json:"success"`
		Data    models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "p-tea", out.Data.ID)
	assert.Equal(t, 650, out.Data.Price)
	assert.False(t, out.Data.CreatedAt.IsZero())
}

func TestPutEmailTemplate_Upserts(t *testing.T) {
	repos := db.NewMemoryRepos()
	c := catalog.New(repos)
	router := httprouter.New()
	router.PUT("/templates/:id", c.PutEmailTemplateHandler)

	body := `{"name":"出貨通知","subject":"已出貨 {{orderId}}","textContent":"{{trackingNumber}}","isActive":true}`
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/templates/"+defaults.TemplateShippingNotice, strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	got, err := repos.EmailTemplates.GetByID(context.Background(), defaults.TemplateShippingNotice)
	require.NoError(t, err)
	assert.Equal(t, "已出貨 {{orderId}}", got.Subject)
}
