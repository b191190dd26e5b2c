package realtime

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
)

const maxInboundMessage = 512

// Serve upgrades the request and streams events until either side disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader, userID string, kinds []domain.EventKind) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := h.Subscribe(userID, kinds)
	go h.writePump(conn, sub)
	h.readPump(conn, sub)
	return nil
}

// readPump drains client frames so control messages are processed and a closed socket is noticed.
func (h *Hub) readPump(conn *websocket.Conn, sub *Subscription) {
	defer sub.Close()

	conn.SetReadLimit(maxInboundMessage)
	deadline := func() time.Time { return time.Now().Add(2 * h.opts.PingInterval) }
	_ = conn.SetReadDeadline(deadline())
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(deadline())
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Realtime read failed", zap.String("user_id", sub.userID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				sub.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}

// ParseKinds parses a comma separated kind filter. Unknown kinds are rejected.
func ParseKinds(raw string) ([]domain.EventKind, error) {
	var kinds []domain.EventKind
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind := domain.EventKind(part)
		if !domain.KnownEventKind(kind) {
			return nil, fmt.Errorf("unknown event kind %q", part)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
