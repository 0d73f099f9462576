package routes

import (
	"github.com/julienschmidt/httprouter"

	"nongxian/auth"
	"nongxian/catalog"
	"nongxian/coupons"
	"nongxian/db"
	"nongxian/idempotency"
	"nongxian/middleware"
	"nongxian/orders"
	"nongxian/permissions"
	"nongxian/ratelim"
	"nongxian/setup"
	"nongxian/shipping"
)

// Deps is everything the routes need, built once in main.
type Deps struct {
	Repos       *db.Repos
	Setup       *setup.Initializer
	Auth        *auth.Service
	Catalog     *catalog.Catalog
	Coupons     *coupons.Service
	Orders      *orders.Service
	Shipping    *shipping.Service
	Idempotency *idempotency.Guard
}

func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	AddSetupRoutes(router, d)
	AddAuthRoutes(router, rateLimiter, d)
	AddStorefrontRoutes(router, d)
	AddCouponRoutes(router, rateLimiter, d)
	AddCheckoutRoutes(router, rateLimiter, d)
	AddAdminCatalogRoutes(router, d)
	AddAdminCouponRoutes(router, d)
	AddAdminOrderRoutes(router, d)
	AddAdminSettingsRoutes(router, d)
	AddAdminUserRoutes(router, d)
}

func AddSetupRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/setup/status", d.Setup.StatusHandler)
	router.POST("/api/setup/initialize", d.Setup.InitializeHandler)
	router.GET("/api/setup/ws", d.Setup.WebSocketHandler)
}

func AddAuthRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	router.POST("/api/auth/login", rateLimiter.Limit(d.Auth.LoginHandler))
	router.GET("/api/auth/me", middleware.Authenticate(d.Auth.MeHandler))
}

func AddStorefrontRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/categories", d.Catalog.CategoriesHandler)
	router.GET("/api/products", d.Catalog.ProductsHandler)
	router.GET("/api/products/:id", d.Catalog.ProductHandler)
	router.GET("/api/payment-methods", d.Catalog.PaymentMethodsHandler)
	router.GET("/api/delivery-methods", d.Catalog.DeliveryMethodsHandler)
}

func AddCouponRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	chain := middleware.Chain(rateLimiter.Limit, middleware.OptionalAuth)
	router.POST("/api/coupons/validate", chain(coupons.ValidateHandler(d.Coupons)))
	router.POST("/api/coupons/apply", chain(coupons.ApplyHandler(d.Coupons)))
}

func AddCheckoutRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	router.POST("/api/checkout/validate/:step", middleware.OptionalAuth(d.Orders.ValidateStepHandler))
	router.POST("/api/checkout/submit",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.OptionalAuth,
			d.Idempotency.Wrap,
		)(d.Orders.SubmitHandler),
	)
	router.GET("/api/my/orders", middleware.Authenticate(d.Orders.MyOrdersHandler))
	router.GET("/api/track/:id", rateLimiter.Limit(d.Orders.TrackHandler))
}

func AddAdminCatalogRoutes(router *httprouter.Router, d *Deps) {
	products := catalog.Products(d.Repos.Products)
	guard := middleware.RequirePage(permissions.ProductManagement)
	router.GET("/api/admin/products", guard(products.List()))
	router.POST("/api/admin/products", guard(products.Create()))
	router.GET("/api/admin/products/:id", guard(products.Get()))
	router.PUT("/api/admin/products/:id", guard(products.Update()))
	router.DELETE("/api/admin/products/:id", guard(products.Delete()))

	categories := catalog.Categories(d.Repos.Categories)
	guard = middleware.RequirePage(permissions.CategoryManagement)
	router.GET("/api/admin/categories", guard(categories.List()))
	router.POST("/api/admin/categories", guard(categories.Create()))
	router.GET("/api/admin/categories/:id", guard(categories.Get()))
	router.PUT("/api/admin/categories/:id", guard(categories.Update()))
	router.DELETE("/api/admin/categories/:id", guard(categories.Delete()))

	payments := catalog.PaymentMethods(d.Repos.PaymentMethods)
	guard = middleware.RequirePage(permissions.PaymentManagement)
	router.GET("/api/admin/payment-methods", guard(payments.List()))
	router.POST("/api/admin/payment-methods", guard(payments.Create()))
	router.GET("/api/admin/payment-methods/:id", guard(payments.Get()))
	router.PUT("/api/admin/payment-methods/:id", guard(payments.Update()))
	router.DELETE("/api/admin/payment-methods/:id", guard(payments.Delete()))
}

func AddAdminCouponRoutes(router *httprouter.Router, d *Deps) {
	guard := middleware.RequirePage(permissions.CouponManagement)
	router.GET("/api/admin/coupons", guard(coupons.ListHandler(d.Coupons)))
	router.POST("/api/admin/coupons", guard(coupons.CreateHandler(d.Coupons)))
	router.GET("/api/admin/coupons/:code", guard(coupons.GetHandler(d.Coupons)))
	router.PUT("/api/admin/coupons/:code", guard(coupons.UpdateHandler(d.Coupons)))
	router.PUT("/api/admin/coupons/:code/active", guard(coupons.SetActiveHandler(d.Coupons)))
	router.DELETE("/api/admin/coupons/:code", guard(coupons.DeleteHandler(d.Coupons)))
	router.GET("/api/admin/coupons/:code/usage", guard(coupons.UsageHandler(d.Coupons)))
}

func AddAdminOrderRoutes(router *httprouter.Router, d *Deps) {
	guard := middleware.RequirePage(permissions.OrderManagement)
	router.GET("/api/admin/orders", guard(d.Orders.ListHandler))
	router.GET("/api/admin/orders/:id", guard(d.Orders.GetHandler))
	router.PUT("/api/admin/orders/:id/status", guard(d.Orders.UpdateStatusHandler))
	router.PUT("/api/admin/orders/:id/payment-status", guard(d.Orders.UpdatePaymentStatusHandler))
	router.DELETE("/api/admin/orders/:id", guard(d.Orders.DeleteHandler))
	router.GET("/api/admin/customers/:uid/orders", guard(d.Orders.UserOrdersHandler))

	ship := middleware.RequirePage(permissions.PageShipping)
	router.POST("/api/admin/orders/:id/ship", ship(d.Shipping.ShipHandler))
	router.GET("/api/admin/orders/:id/label", ship(d.Shipping.LabelHandler))
}

func AddAdminSettingsRoutes(router *httprouter.Router, d *Deps) {
	logistics := middleware.RequirePage(permissions.LogisticsManagement)
	router.GET("/api/admin/settings/logistics", logistics(d.Catalog.GetLogisticsHandler))
	router.PUT("/api/admin/settings/logistics", logistics(d.Catalog.PutLogisticsHandler))

	email := middleware.RequirePage(permissions.EmailManagement)
	router.GET("/api/admin/settings/email", email(d.Catalog.GetEmailSettingsHandler))
	router.PUT("/api/admin/settings/email", email(d.Catalog.PutEmailSettingsHandler))
	router.GET("/api/admin/email-templates", email(d.Catalog.EmailTemplatesHandler))
	router.PUT("/api/admin/email-templates/:id", email(d.Catalog.PutEmailTemplateHandler))
}

func AddAdminUserRoutes(router *httprouter.Router, d *Deps) {
	guard := middleware.RequirePage(permissions.UserManagement)
	router.GET("/api/admin/users", guard(d.Auth.ListUsersHandler))
	router.POST("/api/admin/users", guard(d.Auth.CreateUserHandler))
	router.PUT("/api/admin/users/:uid", guard(d.Auth.UpdateUserHandler))
	router.DELETE("/api/admin/users/:uid", guard(d.Auth.DeleteUserHandler))
}
