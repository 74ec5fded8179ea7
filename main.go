package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/askly/chat/internal/auth"
	"github.com/askly/chat/internal/config"
	"github.com/askly/chat/internal/email"
	"github.com/askly/chat/internal/handlers"
	"github.com/askly/chat/internal/middleware"
	"github.com/askly/chat/internal/moderation"
	"github.com/askly/chat/internal/store/sqlstore"
	"github.com/askly/chat/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	st, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal("open store",
			zap.String("driver", cfg.DBDriver),
			zap.Error(err))
	}
	defer st.Close()

	mod, err := newModerator(cfg)
	if err != nil {
		logger.Fatal("load censored words", zap.Error(err))
	}

	var bridge ws.Bridge = ws.NewLocalBridge()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		bridge = ws.NewRedisBridge(rdb, logger)
		logger.Info("redis bridge enabled", zap.String("addr", cfg.RedisAddr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(st, mod, bridge, logger)
	go hub.Run(ctx)

	authSvc := auth.New(cfg.CookieSecret, cfg.TicketSecret)
	mailer := email.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, logger)

	authHandler := &handlers.AuthHandler{
		Store:     st,
		Auth:      authSvc,
		Email:     mailer,
		Logger:    logger,
		BaseURL:   cfg.BaseURL,
		TicketTTL: cfg.TicketTTL,
	}
	chatHandler := &handlers.ChatHandler{Store: st, Hub: hub, Email: mailer, Logger: logger}
	wsHandler := &handlers.WSHandler{Store: st, Auth: authSvc, Hub: hub}

	authed := middleware.Authenticate(authSvc)

	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))

	r.HandleFunc("/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	r.HandleFunc("/verify", authHandler.Verify).Methods("GET")
	r.Handle("/users/search", authed(http.HandlerFunc(authHandler.SearchUsers))).Methods("GET")
	r.Handle("/ws/ticket", authed(http.HandlerFunc(authHandler.SocketTicket))).Methods("GET")

	r.Handle("/chats", authed(http.HandlerFunc(chatHandler.CreateChat))).Methods("POST")
	r.Handle("/chats", authed(http.HandlerFunc(chatHandler.GetChats))).Methods("GET")
	r.Handle("/chats/{id}", authed(http.HandlerFunc(chatHandler.GetChat))).Methods("GET")
	r.Handle("/chats/{id}", authed(http.HandlerFunc(chatHandler.DeleteChat))).Methods("DELETE")
	r.Handle("/chats/{id}/invite", authed(http.HandlerFunc(chatHandler.InviteUser))).Methods("POST")
	r.Handle("/chats/{id}/leave", authed(http.HandlerFunc(chatHandler.LeaveChat))).Methods("POST")
	r.Handle("/chats/{id}/participants", authed(http.HandlerFunc(chatHandler.GetChatParticipants))).Methods("GET")
	r.Handle("/chats/{id}/participants/{userID}", authed(http.HandlerFunc(chatHandler.RemoveParticipant))).Methods("DELETE")
	r.Handle("/chats/{id}/messages", authed(http.HandlerFunc(chatHandler.GetChatMessages))).Methods("GET")
	r.Handle("/chats/{id}/messages", authed(http.HandlerFunc(chatHandler.PostMessage))).Methods("POST")
	r.Handle("/chats/{id}/read", authed(http.HandlerFunc(chatHandler.MarkRead))).Methods("POST")

	// WebSocket endpoint: session cookie or a ?ticket= from /ws/ticket.
	r.HandleFunc("/ws", wsHandler.Serve)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	return logger
}

func newModerator(cfg *config.Config) (*moderation.Moderator, error) {
	censorRune, err := cfg.CensorRune()
	if err != nil {
		return nil, err
	}
	if cfg.CensoredWordsFile == "" {
		return moderation.New(nil, censorRune)
	}
	return moderation.NewFromFile(cfg.CensoredWordsFile, censorRune)
}
