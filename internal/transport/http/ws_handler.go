package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/proto"
	"github.com/vovakirdan/linechat/internal/utils"
)

// wsReadLimit caps a single WebSocket message; oversized lines inside it are
// still reported by the splitter.
const wsReadLimit = 64 << 10

// WSOptions tunes per-connection buffers for the gateway.
type WSOptions struct {
	MaxLineBytes int
	OutboxSize   int
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
// Every text message carries one or more protocol lines; every outbound frame
// is sent as its own message without the trailing newline.
type WSHandler struct {
	hub  Hub
	opts WSOptions
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub Hub, opts WSOptions, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, opts: opts, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(wsReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := core.NewClient(utils.NewID(), r.RemoteAddr, h.opts.OutboxSize)
	if err := h.hub.RegisterClient(client); err != nil {
		if errors.Is(err, core.ErrCapacityExceeded) {
			_ = conn.Write(ctx, websocket.MessageText, []byte(proto.Error(core.ErrCodeCapacityExceeded).String()))
		}
		h.log.Info().Err(err).Str("remote", client.Remote).Msg("ws connection rejected")
		conn.Close(websocket.StatusTryAgainLater, "connection limit reached")
		return
	}
	defer h.hub.UnregisterClient(client)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	splitter := proto.NewSplitter(h.opts.MaxLineBytes)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws message")
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		for _, line := range splitter.Feed(append(data, '\n')) {
			h.hub.Dispatch(client, line)
		}
	}
}

// writeLoop returns nil once the hub closes the outbox.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case f, ok := <-client.Outbox():
			if !ok {
				return nil
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(f.String())); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
