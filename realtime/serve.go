package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"boardroom/utils"

	"golang.org/x/time/rate"
)

// Conn is the subset of a websocket connection the gateway drives.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Serve runs one connection until the peer goes away. Inbound frames are
// handled concurrently; everything sent to the peer goes through the
// client's queue and a single writer.
func (g *Gateway) Serve(conn Conn, identity *utils.Identity, textMessage int) {
	c := g.Connect(identity)
	log := g.log.WithField("conn_id", c.id)

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for msg := range c.Outbound() {
			if err := conn.WriteMessage(textMessage, msg); err != nil {
				log.WithError(err).Debug("Write failed, closing connection")
				_ = conn.Close()
				return
			}
		}
	}()

	var handlers sync.WaitGroup
	defer func() {
		handlers.Wait()
		g.Disconnect(c)
		writer.Wait()
		_ = conn.Close()
	}()

	limiter := rate.NewLimiter(rate.Limit(maxFramesPerSecond), maxFramesPerSecond)
	decodeErrors := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			c.enqueue(errorFrame("", utils.Validation("too many events, slow down")))
			continue
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
			decodeErrors++
			c.enqueue(errorFrame("", utils.Validation("malformed frame")))
			if decodeErrors >= maxDecodeErrorsPerConn {
				log.Warn("Too many malformed frames, closing connection")
				return
			}
			continue
		}

		handlers.Add(1)
		go func(frame Frame) {
			defer handlers.Done()
			ctx, cancel := context.WithTimeout(context.Background(), g.cfg.EventTimeout)
			defer cancel()
			g.Handle(ctx, c, frame)
		}(frame)
	}
}
