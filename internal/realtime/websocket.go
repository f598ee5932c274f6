package realtime

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
)

// Handler serves the realtime channel endpoint. Subscription starts
// when the connection opens and ends when it closes; the deferred
// Unsubscribe guarantees the hub drops its reference either way.
func Handler(hub *Hub, logger zerolog.Logger) http.Handler {
	wsLogger := logger.With().Str("component", "ws").Logger()

	return websocket.Handler(func(conn *websocket.Conn) {
		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)

		// Drain inbound frames so we notice the peer closing. The
		// channel is one-way; client payloads are discarded.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var discard string
				if err := websocket.Message.Receive(conn, &discard); err != nil {
					if err != io.EOF {
						wsLogger.Debug().Err(err).Msg("receive ended")
					}
					return
				}
			}
		}()

		for {
			select {
			case msg, ok := <-sub.Messages():
				if !ok {
					return
				}
				if err := websocket.JSON.Send(conn, msg); err != nil {
					wsLogger.Debug().Err(err).Msg("send failed, dropping subscriber")
					return
				}
			case <-done:
				return
			}
		}
	})
}
