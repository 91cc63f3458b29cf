package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/trackmap/internal/adapters/nats"
	"github.com/samirrijal/trackmap/internal/pkg/metrics"
)

const (
	wsPingInterval = 30 * time.Second
	wsPollInterval = time.Second
)

// wsMessage is sent by the client.
type wsMessage struct {
	Action    string   `json:"action"` // "refresh" | "move"
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ViewSocketHandler streams the snapshots of one view. The current snapshot
// is sent on connect; later ones are relayed from NATS, or polled when NATS
// is not configured. Clients may send {"action":"refresh"} or
// {"action":"move","latitude":..,"longitude":..}.
func ViewSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		viewID := c.Params("id")
		logger := slog.Default().With("view_id", viewID, "remote", c.RemoteAddr().String())

		view, err := deps.Views.Get(viewID)
		if err != nil {
			_ = c.WriteJSON(map[string]string{"error": "view not found"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Debug("ws client connected")

		var mu sync.Mutex
		write := func(messageType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(messageType, data)
		}
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return write(websocket.TextMessage, data)
		}

		if err := writeJSON(view.Snapshot()); err != nil {
			return
		}

		done := make(chan struct{})
		defer close(done)

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.ViewSubject(viewID), func(msg *nats.Msg) {
				_ = write(websocket.TextMessage, msg.Data)
			})
			if err != nil {
				logger.Warn("ws subscribe failed", "error", err)
				return
			}
			defer func() { _ = sub.Unsubscribe() }()
		} else {
			go func() {
				last := view.Snapshot().Revision
				ticker := time.NewTicker(wsPollInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						snap := view.Snapshot()
						if snap.Revision == last {
							continue
						}
						last = snap.Revision
						if writeJSON(snap) != nil {
							return
						}
					case <-done:
						return
					}
				}
			}()
		}

		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if write(websocket.PingMessage, nil) != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "refresh":
				queued, err := deps.Views.Trigger(viewID)
				if err != nil {
					_ = writeJSON(map[string]string{"error": err.Error()})
					continue
				}
				_ = writeJSON(map[string]any{"status": "refresh", "queued": queued})
			case "move":
				if m.Latitude == nil || m.Longitude == nil {
					_ = writeJSON(map[string]string{"error": "latitude and longitude are required"})
					continue
				}
				if err := deps.Views.Move(viewID, *m.Latitude, *m.Longitude); err != nil {
					_ = writeJSON(map[string]string{"error": err.Error()})
				}
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		logger.Debug("ws client disconnected")
	}
}
