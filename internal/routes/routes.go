package routes

import (
	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/handlers"
	"vastra_back_end/internal/handlers/admin"
	"vastra_back_end/internal/handlers/payment"
	"vastra_back_end/internal/handlers/product"
	"vastra_back_end/internal/handlers/user"
	"vastra_back_end/internal/middleware"
)

// Deps regroupe les handlers et middlewares montés sous /api.
type Deps struct {
	Tokens   middleware.TokenParser
	Resolver middleware.PrincipalResolver
	Limiter  middleware.Limiter
	Audit    audit.Recorder
	Health   map[string]handlers.Pinger

	Auth     *user.Auth
	Orders   *user.Orders
	Account  *user.Account
	Products *product.Handler
	Payments *payment.Handler
	Admin    *admin.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	api := r.Group("/api")
	api.Use(middleware.APIRateLimit(d.Limiter))

	api.GET("/health", handlers.Health(d.Health))

	// Auth
	api.POST("/auth/register", d.Auth.Register)
	api.POST("/auth/login", middleware.LoginRateLimit(d.Limiter), d.Auth.Login)
	api.GET("/auth/:provider", d.Auth.BeginSocial)
	api.GET("/auth/:provider/callback", d.Auth.SocialCallback)

	// Catalogue public
	api.GET("/products", d.Products.List)
	api.GET("/products/search", d.Products.Search)
	api.GET("/products/:slug", d.Products.GetBySlug)
	api.POST("/cart/quote", d.Products.Quote)

	// Paiement : verify et webhook sont authentifiés par signature
	api.POST("/payment/verify", d.Payments.Verify)
	api.POST("/payment/stripe/webhook", d.Payments.StripeWebhook)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired(d.Tokens, d.Resolver))
	{
		authed.POST("/orders", d.Orders.Create)
		authed.GET("/orders", d.Orders.Mine)
		authed.GET("/orders/:id", d.Orders.Get)
		authed.POST("/orders/:id/cancel", d.Orders.Cancel)
		authed.GET("/orders/:id/ws", d.Orders.Stream)
		authed.GET("/orders/:id/qr", d.Orders.QRCode)

		authed.POST("/payment/create-order", d.Payments.CreateOrder)

		authed.GET("/user/profile", d.Account.Profile)
		authed.PUT("/user/profile", d.Account.UpdateProfile)
		authed.POST("/user/addresses", d.Account.AddAddress)
		authed.DELETE("/user/addresses/:addressId", d.Account.RemoveAddress)
		authed.PUT("/user/addresses/:addressId/default", d.Account.SetDefaultAddress)

		authed.GET("/wishlist", d.Account.Wishlist)
		authed.POST("/wishlist", d.Account.ToggleWishlist)
	}

	adm := authed.Group("/admin")
	adm.Use(middleware.AuditFailures(d.Audit, audit.ActionAdminRequest, audit.ResourceAdmin), middleware.RequireAdmin)
	{
		adm.GET("/orders", d.Admin.ListOrders)
		adm.GET("/orders/stats", d.Admin.OrderStats)
		adm.PUT("/orders/:id", d.Admin.UpdateOrderStatus)
		adm.POST("/orders/:id/refund", d.Admin.RefundOrder)

		adm.GET("/customers", d.Admin.ListCustomers)
		adm.GET("/audit", d.Admin.RecentAudit)

		adm.GET("/products/:id", d.Admin.GetProduct)
		adm.POST("/products", d.Admin.CreateProduct)
		adm.PUT("/products/:id", d.Admin.UpdateProduct)
		adm.DELETE("/products/:id", d.Admin.DeleteProduct)
		adm.PUT("/products/:id/stock", d.Admin.SetStock)
		adm.POST("/products/:id/images", d.Admin.UploadImage)
		adm.DELETE("/products/:id/images", d.Admin.RemoveImage)
	}
}
