package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gorilla/websocket"
)

// markMessage is one streamed option mark: the contract key produced by
// market.OptionContract.Key and its latest premium.
type markMessage struct {
	Key   string  `json:"key"`
	Price float64 `json:"price"`
}

// Run keeps the websocket mark stream connected until the context is
// canceled. It is a no-op for the stub provider.
func (f *Feed) Run(ctx context.Context) error {
	if f.provider != ProviderWebsocket {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.url == "" {
		return fmt.Errorf("websocket feed requires a url")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeStream(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("mark stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeStream(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("url", f.url).Msg("connected mark stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("mark stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg markMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode mark message")
			continue
		}
		if msg.Key == "" || msg.Price <= 0 {
			f.log.Warn().Str("key", msg.Key).Float64("price", msg.Price).Msg("dropping malformed mark")
			continue
		}
		f.applyMark(msg.Key, msg.Price)
	}
}
