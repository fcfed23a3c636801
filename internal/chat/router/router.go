package router

import (
	"context"

	"portfolio_chat_service/internal/chat/app"
	"portfolio_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天 websocket 路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, adminEmail string) {
	r.Get("/ws", middlewares.JWTMiddleware(adminEmail), func(c *fiber.Ctx) error {
		// 只接受 websocket upgrade
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}
