package server

import (
	"sync"
	"time"

	"otc-broker/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096 // subscribe commands only, keep it tight
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub  *FastAPIServer
	conn *websocket.Conn
	send chan *models.MCandleEvent

	// Subscription filter, written by readPump and read by the Hub loop
	filterMu         sync.RWMutex
	symbols          map[string]struct{}
	timeframeMinutes int
}

// -----------------------------------------------------------------------------
// Subscription Filter
// -----------------------------------------------------------------------------

// setSubscription replaces the client filter. Empty symbols means all series.
func (c *Client) setSubscription(symbols []string, timeframeMinutes int) {
	var set map[string]struct{}
	if len(symbols) > 0 {
		set = make(map[string]struct{}, len(symbols))
		for _, sym := range symbols {
			set[sym] = struct{}{}
		}
	}

	c.filterMu.Lock()
	c.symbols = set
	c.timeframeMinutes = timeframeMinutes
	c.filterMu.Unlock()
}

// -----------------------------------------------------------------------------

func (c *Client) wants(event *models.MCandleEvent) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()

	if c.symbols != nil {
		if _, ok := c.symbols[event.Meta.Symbol]; !ok {
			return false
		}
	}
	if c.timeframeMinutes > 0 && c.timeframeMinutes != event.Meta.TimeframeMinutes {
		return false
	}
	return true
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.hub.Logger.Info("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		// Handle the message (subscribe commands)
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Write JSON message
			if err := c.conn.WriteJSON(event); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
