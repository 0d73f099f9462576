package catalog

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"

	"nongxian/apperr"
	"nongxian/models"
	"nongxian/store"
	"nongxian/utils"
)

// Resource wires one collection to the generic back-office handlers.
type Resource[T any] struct {
	Repo       store.Repository[T]
	OrderField string
	Dir        store.Direction
	// Check validates a document before it is written.
	Check func(doc *T) error
	// IDOf returns the client-chosen id; empty lets the store generate one.
	IDOf  func(doc T) string
	Stamp func(doc *T, now time.Time)
}

func (res Resource[T]) List() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		docs, err := res.Repo.GetAll(ctx, res.OrderField, res.Dir, utils.ParseLimit(r, 0, 1000))
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, docs)
	}
}

func (res Resource[T]) Get() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		doc, err := res.Repo.GetByID(ctx, ps.ByName("id"))
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, doc)
	}
}

func (res Resource[T]) Create() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var doc T
		if err := utils.DecodeJSON(r, &doc); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		if res.Check != nil {
			if err := res.Check(&doc); err != nil {
				utils.RespondWithAppError(w, err)
				return
			}
		}
		if res.Stamp != nil {
			res.Stamp(&doc, time.Now())
		}

		id := ""
		if res.IDOf != nil {
			id = res.IDOf(doc)
		}
		var err error
		if id == "" {
			id, err = res.Repo.Add(ctx, doc)
		} else {
			err = res.Repo.AddWithID(ctx, id, doc)
		}
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}

		created, err := res.Repo.GetByID(ctx, id)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusCreated, created)
	}
}

// Update replaces every field of the document except its id and creation
// time.
func (res Resource[T]) Update() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var doc T
		if err := utils.DecodeJSON(r, &doc); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		if res.Check != nil {
			if err := res.Check(&doc); err != nil {
				utils.RespondWithAppError(w, err)
				return
			}
		}
		fields, err := fieldsOf(doc)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}

		id := ps.ByName("id")
		if err := res.Repo.Update(ctx, id, fields); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		updated, err := res.Repo.GetByID(ctx, id)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, updated)
	}
}

func (res Resource[T]) Delete() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := res.Repo.Delete(ctx, ps.ByName("id")); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, utils.M{"deleted": ps.ByName("id")})
	}
}

// fieldsOf flattens doc into top-level update fields.
func fieldsOf(doc any) (map[string]any, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, apperr.InternalError("資料格式錯誤", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, apperr.InternalError("資料格式錯誤", err)
	}
	delete(m, "_id")
	delete(m, "createdAt")
	return m, nil
}

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

func checkProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return apperr.ValidationError("請輸入商品名稱")
	case p.Category == "":
		return apperr.ValidationError("請選擇商品分類")
	case p.Price < 0:
		return apperr.ValidationError("商品價格不可為負數")
	case p.Stock < 0:
		return apperr.ValidationError("庫存不可為負數")
	case p.ID != "" && !slugPattern.MatchString(p.ID):
		return apperr.ValidationError("商品代碼只能包含小寫英文、數字、底線與連字號")
	}
	return nil
}

func checkCategory(c *models.Category) error {
	switch {
	case !slugPattern.MatchString(c.ID):
		return apperr.ValidationError("分類代碼只能包含小寫英文、數字、底線與連字號")
	case c.Name == "":
		return apperr.ValidationError("請輸入分類名稱")
	}
	return nil
}

func checkPaymentMethod(m *models.PaymentMethod) error {
	switch {
	case !slugPattern.MatchString(m.ID):
		return apperr.ValidationError("付款方式代碼只能包含小寫英文、數字、底線與連字號")
	case m.Name == "":
		return apperr.ValidationError("請輸入付款方式名稱")
	case m.Fee < 0:
		return apperr.ValidationError("手續費不可為負數")
	}
	return nil
}

// Products is the back-office product resource.
func Products(repo store.Repository[models.Product]) Resource[models.Product] {
	return Resource[models.Product]{
		Repo:       repo,
		OrderField: "createdAt",
		Dir:        store.Desc,
		Check:      checkProduct,
		IDOf:       func(p models.Product) string { return p.ID },
		Stamp:      func(p *models.Product, now time.Time) { p.CreatedAt = now },
	}
}

func Categories(repo store.Repository[models.Category]) Resource[models.Category] {
	return Resource[models.Category]{
		Repo:       repo,
		OrderField: "sortOrder",
		Dir:        store.Asc,
		Check:      checkCategory,
		IDOf:       func(c models.Category) string { return c.ID },
		Stamp:      func(c *models.Category, now time.Time) { c.CreatedAt = now },
	}
}

func PaymentMethods(repo store.Repository[models.PaymentMethod]) Resource[models.PaymentMethod] {
	return Resource[models.PaymentMethod]{
		Repo:       repo,
		OrderField: "sortOrder",
		Dir:        store.Asc,
		Check:      checkPaymentMethod,
		IDOf:       func(m models.PaymentMethod) string { return m.ID },
		Stamp:      func(m *models.PaymentMethod, now time.Time) { m.CreatedAt = now },
	}
}
