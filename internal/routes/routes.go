package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/arister/internal/config"
	"github.com/example/arister/internal/handlers"
	"github.com/example/arister/internal/middleware"
	"github.com/example/arister/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, shiprocket *services.ShiprocketService, mailer *services.Mailer) {
	settingsService := services.NewSettingsService(db)
	codService := services.NewCODService(settingsService)
	promotionService := services.NewPromotionService(db)
	orderService := services.NewOrderService(db, promotionService, codService, mailer)
	razorpayService := services.NewRazorpayService(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL)

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret, cfg.TokenExpires)
	productHandler := handlers.NewProductHandler(db)
	promotionHandler := handlers.NewPromotionHandler(db, promotionService)
	orderHandler := handlers.NewOrderHandler(db, orderService, codService, shiprocket, mailer, settingsService)
	replacementHandler := handlers.NewReplacementHandler(db, orderService, shiprocket, mailer)
	paymentHandler := handlers.NewPaymentHandler(db, orderService, razorpayService, settingsService)
	reviewHandler := handlers.NewReviewHandler(db)
	settingsHandler := handlers.NewSettingsHandler(settingsService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Catalog routes
	products := api.Group("/products")
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.Get)
	products.Get("/:productId/reviews", reviewHandler.ListForProduct)

	// Public checkout helpers
	api.Post("/orders/check-cod", orderHandler.CheckCod)
	api.Get("/orders/online-payment-status", orderHandler.OnlinePaymentStatus)
	api.Post("/promotions/apply", promotionHandler.Apply)

	// Carrier webhook
	api.Post("/orders/webhook/shiprocket", orderHandler.ShiprocketWebhook)

	// Authenticated customer routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/info/:orderId", orderHandler.GetOrder)
	protected.Get("/orders/track/:orderId", orderHandler.TrackOrder)
	protected.Get("/orders/discount/:orderId", orderHandler.GetDiscount)
	protected.Post("/orders/:orderId/request-cancellation", orderHandler.RequestCancellation)

	protected.Post("/payments/razorpay/:orderId", paymentHandler.CreateRazorpayOrder)
	protected.Post("/payments/verify", paymentHandler.VerifyPayment)

	protected.Get("/replacements/my", replacementHandler.MyReplacements)
	protected.Get("/replacements/check/:orderId", replacementHandler.CheckEligibility)
	protected.Post("/replacements/:orderId", replacementHandler.Request)
	protected.Post("/replacements/:orderId/cancel", replacementHandler.CancelRequest)

	protected.Post("/reviews", reviewHandler.Create)
	protected.Post("/reviews/:id/helpful", reviewHandler.MarkHelpful)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.RequireAdmin())

	admin.Post("/products", productHandler.Create)
	admin.Put("/products/:id", productHandler.Update)
	admin.Delete("/products/:id", productHandler.Delete)
	admin.Post("/products/:id/stock", productHandler.UpdateStock)

	admin.Get("/promotions", promotionHandler.List)
	admin.Post("/promotions", promotionHandler.Create)
	admin.Put("/promotions/:id", promotionHandler.Update)
	admin.Delete("/promotions/:id", promotionHandler.Delete)

	admin.Get("/orders", orderHandler.ListAllOrders)
	admin.Post("/orders/:orderId/cancel", orderHandler.CancelOrder)
	admin.Post("/orders/:orderId/cancellation/approve", orderHandler.ApproveCancellation)
	admin.Post("/orders/:orderId/cancellation/reject", orderHandler.RejectCancellation)
	admin.Get("/orders/:orderId/couriers", orderHandler.CourierOptions)
	admin.Post("/orders/:orderId/ship", orderHandler.AddToShiprocket)
	admin.Get("/orders/:orderId/documents/:doc", orderHandler.ShippingDocument)

	admin.Get("/replacements", replacementHandler.ListAll)
	admin.Post("/replacements/:orderId/approve", replacementHandler.Approve)
	admin.Post("/replacements/:orderId/reject", replacementHandler.Reject)
	admin.Post("/replacements/:orderId/complete", replacementHandler.Complete)

	admin.Delete("/reviews/:id", reviewHandler.Delete)

	settings := api.Group("/settings", middleware.AuthMiddleware(cfg), middleware.RequireAdmin())
	settings.Get("/cod", settingsHandler.GetCod)
	settings.Put("/cod", settingsHandler.UpdateCod)
	settings.Put("/online-payment", settingsHandler.UpdateOnlinePayment)
}
