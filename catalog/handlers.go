package catalog

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"nongxian/apperr"
	"nongxian/defaults"
	"nongxian/models"
	"nongxian/store"
	"nongxian/utils"
)

func (c *Catalog) CategoriesHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := c.ActiveCategories(ctx)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, list)
}

// ProductsHandler lists products on sale; ?category= narrows the list.
func (c *Catalog) ProductsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := c.ActiveProducts(ctx, r.URL.Query().Get("category"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, list)
}

func (c *Catalog) ProductHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := c.repos.Products.GetByID(ctx, ps.ByName("id"))
	if err == nil && !p.IsActive {
		err = apperr.NotFoundError("找不到商品", nil)
	}
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, p)
}

func (c *Catalog) PaymentMethodsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := c.EnabledPaymentMethods(ctx)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, list)
}

func (c *Catalog) DeliveryMethodsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := c.EnabledDeliveryMethods(ctx)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, list)
}

func (c *Catalog) GetLogisticsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s, err := c.Logistics(ctx)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, s)
}

// PutLogisticsHandler replaces the logistics singleton.
func (c *Catalog) PutLogisticsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var s models.LogisticsSettings
	if err := utils.DecodeJSON(r, &s); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	for _, cr := range s.Carriers {
		if cr.Code == "" || cr.Name == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "物流業者需有代碼與名稱")
			return
		}
	}
	s.ID = defaults.LogisticsSettingsID
	s.UpdatedAt = time.Now()

	if err := upsert(ctx, c.repos.Logistics.Update, c.repos.Logistics.AddWithID, s.ID, s); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, s)
}

func (c *Catalog) GetEmailSettingsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s, err := c.repos.EmailSettings.GetByID(ctx, defaults.EmailSettingsID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, s)
}

func (c *Catalog) PutEmailSettingsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var s models.EmailSettings
	if err := utils.DecodeJSON(r, &s); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if s.SenderEmail != "" && !utils.IsValidEmail(s.SenderEmail) {
		utils.RespondWithError(w, http.StatusBadRequest, "寄件者信箱格式錯誤")
		return
	}
	if s.AdminEmail != "" && !utils.IsValidEmail(s.AdminEmail) {
		utils.RespondWithError(w, http.StatusBadRequest, "管理員信箱格式錯誤")
		return
	}
	s.ID = defaults.EmailSettingsID
	s.UpdatedAt = time.Now()

	if err := upsert(ctx, c.repos.EmailSettings.Update, c.repos.EmailSettings.AddWithID, s.ID, s); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, s)
}

// EmailTemplatesHandler lists stored templates, filling in the built-in
// ones that were never stored.
func (c *Catalog) EmailTemplatesHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stored, err := c.repos.EmailTemplates.GetAll(ctx, "name", store.Asc, 0)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	seen := make(map[string]struct{}, len(stored))
	for _, t := range stored {
		seen[t.ID] = struct{}{}
	}
	for _, t := range defaults.EmailTemplates(time.Time{}) {
		if _, ok := seen[t.ID]; !ok {
			stored = append(stored, t)
		}
	}
	utils.RespondWithSuccess(w, http.StatusOK, stored)
}

func (c *Catalog) PutEmailTemplateHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var t models.EmailTemplate
	if err := utils.DecodeJSON(r, &t); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if t.Subject == "" || (t.HTMLContent == "" && t.TextContent == "") {
		utils.RespondWithError(w, http.StatusBadRequest, "郵件範本需有主旨與內容")
		return
	}
	t.ID = ps.ByName("id")
	t.UpdatedAt = time.Now()

	if err := upsert(ctx, c.repos.EmailTemplates.Update, c.repos.EmailTemplates.AddWithID, t.ID, t); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, t)
}

// upsert updates the document with id, or creates it when missing.
func upsert[T any](ctx context.Context,
	update func(context.Context, string, map[string]any) error,
	add func(context.Context, string, T) error,
	id string, doc T,
) error {
	fields, err := fieldsOf(doc)
	if err != nil {
		return err
	}
	err = update(ctx, id, fields)
	if apperr.Is(err, apperr.NotFound) {
		return add(ctx, id, doc)
	}
	return err
}
