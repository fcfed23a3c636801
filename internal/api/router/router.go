package router

import (
	"portfolio_chat_service/internal/api/handlers"
	"portfolio_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 注册 REST 路由
// @title Portfolio Chat Service API
// @version 1.0
// @description Contact form, admin inbox and chat websocket of the portfolio site
// @host localhost:8082
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(app *fiber.App, contactHandler *handlers.ContactHandler, inboxHandler *handlers.InboxHandler, adminEmail string) {
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/", handlers.ConnectCheck)

	app.Post("/contact", contactHandler.Submit)

	// admin 驗證只掛在各自的 route 上, 空前綴 Group 會套用到之後註冊的 /ws
	requireAdmin := []fiber.Handler{middlewares.JWTMiddleware(adminEmail), middlewares.RequireAdmin()}
	app.Post("/debug", append(requireAdmin, handlers.DebugLogFlag)...)
	app.Get("/conversations", append(requireAdmin, inboxHandler.List)...)
}
