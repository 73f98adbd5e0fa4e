package routes

import (
	"context"
	"fmt"
	"log"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nagell/chat-nest/internal/config"
	"github.com/Nagell/chat-nest/internal/email"
	"github.com/Nagell/chat-nest/internal/handlers"
	"github.com/Nagell/chat-nest/internal/middleware"
	"github.com/Nagell/chat-nest/internal/repository"
	"github.com/Nagell/chat-nest/internal/services"
	chatws "github.com/Nagell/chat-nest/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) error {
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	hub := chatws.NewHub()

	var sender email.Sender
	if cfg.EmailEnabled() {
		smtpSender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		if err != nil {
			return fmt.Errorf("smtp configuration: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := smtpSender.Verify(ctx); err != nil {
			return fmt.Errorf("smtp verification: %w", err)
		}

		sender = smtpSender
		log.Println("email: SMTP transport verified")
	}
	notifier := email.NewNotifier(sender, cfg.AdminEmail, cfg.DashboardURL)

	chatService := services.NewChatService(sessionRepo, messageRepo, hub, notifier)
	chatHandler := handlers.NewChatHandler(chatService, hub)

	api := app.Group("/api/chat")
	api.Post("/sessions", chatHandler.CreateSession)
	api.Get("/sessions/:id", chatHandler.GetSession)
	api.Get("/sessions/:id/messages", chatHandler.GetMessages)
	api.Post("/sessions/:id/mark-read", chatHandler.MarkMessagesRead)
	api.Post("/messages", chatHandler.SendMessage)
	api.Get("/health", chatHandler.Health)

	admin := api.Group("/admin", middleware.AdminRequired(cfg.JWTSecret))
	admin.Get("/sessions", chatHandler.AdminSessions)
	admin.Get("/stats", chatHandler.ConnectionStats)

	app.Use("/ws", chatHandler.WebSocketUpgrade)
	app.Get("/ws", websocket.New(chatHandler.HandleWebSocket))

	return nil
}
