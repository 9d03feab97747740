package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/atharvakonge/papertrade/internal/metrics"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/atharvakonge/papertrade/internal/pricing"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	clientSendSize = 16
)

// PriceUpdate represents a stock price update
type PriceUpdate struct {
	StockID   int64           `json:"stock_id"`
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	Change    decimal.Decimal `json:"change"`
	Timestamp time.Time       `json:"timestamp"`
}

// StockLister is the listing source for price ticks.
type StockLister interface {
	ListStocks(ctx context.Context) ([]models.Stock, error)
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (for development and demo)
	},
}

type wsClient struct {
	send chan []PriceUpdate
}

// PriceHub streams display prices to websocket clients. It owns its feed,
// so ticks never disturb the prices handed to traders.
type PriceHub struct {
	stocks  StockLister
	feed    *pricing.Feed
	metrics *metrics.Metrics

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    []PriceUpdate
}

func NewPriceHub(stocks StockLister, feed *pricing.Feed, m *metrics.Metrics) *PriceHub {
	return &PriceHub{
		stocks:  stocks,
		feed:    feed,
		metrics: m,
		clients: make(map[*wsClient]struct{}),
	}
}

// Tick prices every listed stock once and broadcasts the result.
func (h *PriceHub) Tick(ctx context.Context) error {
	stocks, err := h.stocks.ListStocks(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	quotes := h.feed.Quotes(stocks)

	h.mu.Lock()
	previous := make(map[int64]decimal.Decimal, len(h.last))
	for _, u := range h.last {
		previous[u.StockID] = u.Price
	}
	updates := make([]PriceUpdate, 0, len(quotes))
	for _, q := range quotes {
		u := PriceUpdate{StockID: q.StockID, Ticker: q.Ticker, Price: q.Price, Timestamp: now}
		if prev, ok := previous[q.StockID]; ok {
			u.Change = q.Price.Sub(prev)
		}
		updates = append(updates, u)
	}
	h.last = updates
	h.mu.Unlock()

	h.Broadcast(updates)
	return nil
}

// Broadcast queues updates for every client. A client too slow to keep up
// is disconnected.
func (h *PriceHub) Broadcast(updates []PriceUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- updates:
		default:
			h.removeLocked(c)
		}
	}
}

func (h *PriceHub) register() *wsClient {
	c := &wsClient{send: make(chan []PriceUpdate, clientSendSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()
	h.metrics.ClientConnected()
	return c
}

func (h *PriceHub) unregister(c *wsClient) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *PriceHub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.ClientDisconnected()
}

// Clients returns the number of connected clients.
func (h *PriceHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWebSocket handles WebSocket connections for price updates
func (h *PriceHub) HandleWebSocket(c *gin.Context) {
	// Upgrade HTTP connection to WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := h.register()
	zap.L().Debug("price stream client connected", zap.String("remote", c.ClientIP()))

	go h.readPump(conn, client)
	h.writePump(conn, client)
}

// readPump discards client messages and notices disconnects.
func (h *PriceHub) readPump(conn *websocket.Conn, client *wsClient) {
	defer h.unregister(client)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *PriceHub) writePump(conn *websocket.Conn, client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		h.unregister(client)
	}()

	for {
		select {
		case updates, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(updates); err != nil {
				zap.L().Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
