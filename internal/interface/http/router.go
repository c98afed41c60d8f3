package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter はルーティングを構成した gin.Engine を返す
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", handler.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/upload", handler.Upload)
		v1.POST("/delete", handler.Delete)
		v1.POST("/generate", handler.Generate)
	}

	return router
}

// Serve は HTTP サーバを起動し、ctx のキャンセルで graceful shutdown する
func Serve(ctx context.Context, addr string, handler *Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:    addr,
		Handler: NewRouter(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTPサーバを起動", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("HTTPサーバを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
