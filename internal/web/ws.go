package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"AccessDeck/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 64
)

// WSMessage is the frame pushed to dashboard clients.
type WSMessage struct {
	Channel   string      `json:"channel"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"ts"`
}

type wsClient struct {
	hub      *WSHub
	conn     *websocket.Conn
	send     chan []byte
	userID   uint
	mu       sync.RWMutex
	channels map[string]bool // empty = all channels
}

func (c *wsClient) wants(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.channels) == 0 || c.channels[channel]
}

type outbound struct {
	userID  uint
	channel string
	frame   []byte
}

// WSHub fans progress events out to connected dashboards.
type WSHub struct {
	origins    map[string]bool
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan outbound
	stop       chan struct{}
	stopOnce   sync.Once
	countMu    sync.RWMutex
	count      int
}

func NewWSHub(origins []string) *WSHub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return &WSHub{
		origins:    allowed,
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan outbound, 256),
		stop:       make(chan struct{}),
	}
}

func (h *WSHub) Run() {
	for {
		select {
		case <-h.stop:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return
		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.setCount(len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				if msg.userID != 0 && c.userID != msg.userID {
					continue
				}
				if !c.wants(msg.channel) {
					continue
				}
				select {
				case c.send <- msg.frame:
				default:
					// slow consumer
					delete(h.clients, c)
					close(c.send)
					h.setCount(len(h.clients))
				}
			}
		}
	}
}

func (h *WSHub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *WSHub) setCount(n int) {
	h.countMu.Lock()
	h.count = n
	h.countMu.Unlock()
}

func (h *WSHub) ClientCount() int {
	h.countMu.RLock()
	defer h.countMu.RUnlock()
	return h.count
}

// Broadcast sends to every client subscribed to channel.
func (h *WSHub) Broadcast(channel, msgType string, data interface{}) {
	h.BroadcastTo(0, channel, msgType, data)
}

// BroadcastTo sends only to connections of userID. Zero means everyone.
func (h *WSHub) BroadcastTo(userID uint, channel, msgType string, data interface{}) {
	frame, err := json.Marshal(WSMessage{
		Channel:   channel,
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		logger.Log.Warn().Err(err).Str("channel", channel).Msg("ws marshal failed")
		return
	}
	select {
	case h.broadcast <- outbound{userID: userID, channel: channel, frame: frame}:
	case <-h.stop:
	default:
		logger.Log.Warn().Str("channel", channel).Msg("ws broadcast queue full, dropping event")
	}
}

func (h *WSHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.origins["*"] || h.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// HandleWS upgrades authenticated requests. Browsers cannot set headers on
// websocket requests, so the token may also come from ?token=.
func (h *WSHub) HandleWS(secret string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := TokenFromRequest(r)
		if tokenStr == "" {
			tokenStr = r.URL.Query().Get("token")
		}
		claims, err := ParseToken(secret, tokenStr)
		if err != nil {
			FailErr(w, r, ErrUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.Debug().Err(err).Msg("ws upgrade failed")
			return
		}
		c := &wsClient{
			hub:      h,
			conn:     conn,
			send:     make(chan []byte, wsSendBuffer),
			userID:   claims.UserID,
			channels: map[string]bool{},
		}
		select {
		case h.register <- c:
		case <-h.stop:
			conn.Close()
			return
		}
		go c.writePump()
		go c.readPump()
	}
}

type wsCommand struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd wsCommand
		if json.Unmarshal(data, &cmd) != nil {
			continue
		}
		c.mu.Lock()
		switch cmd.Action {
		case "subscribe":
			for _, ch := range cmd.Channels {
				c.channels[ch] = true
			}
		case "unsubscribe":
			for _, ch := range cmd.Channels {
				delete(c.channels, ch)
			}
		}
		c.mu.Unlock()
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
