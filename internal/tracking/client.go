package tracking

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/auth"
	"github.com/foodly/storefront/internal/enum"
	"github.com/foodly/storefront/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // authenticated by the token query param
	},
}

// Client is one websocket connection watching one order.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	room model.ID
	send chan []byte
}

// ReadPump only detects disconnects; watchers never send anything.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("order_id", c.room.String()).Msg("websocket read")
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// coalesce queued messages, newline separated
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// ServeWS upgrades a watcher connection.
// Endpoint: WS /ws/orders/{id}?token=JWT
//
// The order is fetched upstream with the caller's token first, so customers
// can only watch orders the platform lets them see. The last known shipper
// position is sent right after connecting.
func ServeWS(t *Tracker, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if !enum.ValidRole(claims.Role) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}

	orderID := model.ID(chi.URLParam(r, "id"))
	if orderID.IsZero() {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	ctx := apiclient.WithToken(r.Context(), tokenStr)
	if _, err := t.orders.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		t.log.Error().Err(err).Str("order_id", orderID.String()).Msg("websocket order lookup")
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	client := &Client{
		hub:  t.hub,
		conn: conn,
		room: roomKey(orderID),
		send: make(chan []byte, 256),
	}

	if loc, err := t.LastLocation(r.Context(), orderID); err != nil {
		t.log.Warn().Err(err).Str("order_id", orderID.String()).Msg("load last location")
	} else if loc != nil {
		payload, _ := json.Marshal(loc)
		if msg, err := json.Marshal(Event{Type: enum.EventShipperLocation, OrderID: orderID, Payload: payload}); err == nil {
			client.send <- msg
		}
	}

	if !t.hub.join(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
