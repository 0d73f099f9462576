package db

import (
	"go.mongodb.org/mongo-driver/mongo"

	"nongxian/models"
	"nongxian/store"
)

// Repos bundles one typed repository per collection.
type Repos struct {
	Coupons        store.Repository[models.Coupon]
	CouponUsage    store.Repository[models.CouponUsage]
	Orders         store.Repository[models.Order]
	Products       store.Repository[models.Product]
	Categories     store.Repository[models.Category]
	PaymentMethods store.Repository[models.PaymentMethod]
	Logistics      store.Repository[models.LogisticsSettings]
	EmailSettings  store.Repository[models.EmailSettings]
	EmailTemplates store.Repository[models.EmailTemplate]
	Admins         store.Repository[models.AdminUser]
	Idempotency    store.Repository[models.IdempotencyRecord]
}

func NewMongoRepos(database *mongo.Database) *Repos {
	return &Repos{
		Coupons:        store.NewMongoRepository[models.Coupon](database, CouponsCollection),
		CouponUsage:    store.NewMongoRepository[models.CouponUsage](database, CouponUsageCollection),
		Orders:         store.NewMongoRepository[models.Order](database, OrdersCollection),
		Products:       store.NewMongoRepository[models.Product](database, ProductsCollection),
		Categories:     store.NewMongoRepository[models.Category](database, CategoriesCollection),
		PaymentMethods: store.NewMongoRepository[models.PaymentMethod](database, PaymentMethodsCollection),
		Logistics:      store.NewMongoRepository[models.LogisticsSettings](database, LogisticsCollection),
		EmailSettings:  store.NewMongoRepository[models.EmailSettings](database, EmailSettingsCollection),
		EmailTemplates: store.NewMongoRepository[models.EmailTemplate](database, EmailTemplatesCollection),
		Admins:         store.NewMongoRepository[models.AdminUser](database, AdminsCollection),
		Idempotency:    store.NewMongoRepository[models.IdempotencyRecord](database, IdempotencyCollection),
	}
}

// NewMemoryRepos backs every collection with an in-process repository.
func NewMemoryRepos() *Repos {
	return &Repos{
		Coupons:        store.NewMemoryRepository[models.Coupon](CouponsCollection),
		CouponUsage:    store.NewMemoryRepository[models.CouponUsage](CouponUsageCollection),
		Orders:         store.NewMemoryRepository[models.Order](OrdersCollection),
		Products:       store.NewMemoryRepository[models.Product](ProductsCollection),
		Categories:     store.NewMemoryRepository[models.Category](CategoriesCollection),
		PaymentMethods: store.NewMemoryRepository[models.PaymentMethod](PaymentMethodsCollection),
		Logistics:      store.NewMemoryRepository[models.LogisticsSettings](LogisticsCollection),
		EmailSettings:  store.NewMemoryRepository[models.EmailSettings](EmailSettingsCollection),
		EmailTemplates: store.NewMemoryRepository[models.EmailTemplate](EmailTemplatesCollection),
		Admins:         store.NewMemoryRepository[models.AdminUser](AdminsCollection),
		Idempotency:    store.NewMemoryRepository[models.IdempotencyRecord](IdempotencyCollection),
	}
}
