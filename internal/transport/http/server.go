package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/proto"
)

// Hub is the part of core.Hub used by the admin API and the WebSocket gateway.
type Hub interface {
	RegisterClient(c *core.Client) error
	UnregisterClient(c *core.Client)
	Dispatch(c *core.Client, line proto.Line)
	Rooms() []core.RoomInfo
	ConnectionCount() int
	MaxConnections() int
}

// NewServer builds the admin HTTP server with the WebSocket gateway mounted on /ws.
func NewServer(hub Hub, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(hub, logger)
	apiGroup := router.Group("/api")
	apiGroup.GET("/rooms", api.ListRooms)
	apiGroup.GET("/rooms/:name", api.GetRoom)
	apiGroup.GET("/stats", api.Stats)

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, WSOptions{
		MaxLineBytes: cfg.MaxLineBytes,
		OutboxSize:   cfg.OutboxSize,
	}, logger)))

	return &stdhttp.Server{
		Addr:              cfg.AdminAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
