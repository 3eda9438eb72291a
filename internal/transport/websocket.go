// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "tuner/internal/log"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MessageHello   = "hello"
	MessageReading = "reading"

	writeTimeout = time.Second
)

// Message is the JSON envelope written to WebSocket clients.
type Message struct {
	Type    string  `json:"type"`
	Session string  `json:"session,omitempty"`
	A4      float64 `json:"a4,omitempty"`
	Data    any     `json:"data,omitempty"`
}

// WebSocketOptions configures the WebSocket server.
type WebSocketOptions struct {
	Address string         // listen address, "host:port"; port 0 picks a free port
	A4      func() float64 // reference pitch reported in the hello message
}

// WebSocketTransport implements the Transport interface for WebSocket
// connections on /ws. Each client is greeted with a hello message carrying
// the session id, then receives every reading as it is sent.
type WebSocketTransport struct {
	session   string
	a4        func() float64
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]string // conn to client id
	clientsMu sync.Mutex
	broadcast chan any
	dropped   atomic.Uint64

	listener  net.Listener
	server    *http.Server
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketTransport starts listening on opts.Address.
func NewWebSocketTransport(opts WebSocketOptions) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("websocket transport: %w", err)
	}

	wst := &WebSocketTransport{
		session: uuid.NewString(),
		a4:      opts.A4,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // browser dashboards are served from anywhere
			},
		},
		clients:   make(map[*websocket.Conn]string),
		broadcast: make(chan any, 256),
		listener:  ln,
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		applog.Infof("WebSocketTransport: Serving on ws://%s/ws (session %s)", ln.Addr(), wst.session)
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst, nil
}

// Addr returns the listening address.
func (wst *WebSocketTransport) Addr() net.Addr { return wst.listener.Addr() }

// Port returns the listening TCP port.
func (wst *WebSocketTransport) Port() int {
	if addr, ok := wst.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Session returns the id sent to clients in the hello message.
func (wst *WebSocketTransport) Session() string { return wst.session }

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Dropped returns the number of messages discarded because the broadcast
// queue was full.
func (wst *WebSocketTransport) Dropped() uint64 { return wst.dropped.Load() }

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	hello := Message{Type: MessageHello, Session: wst.session}
	if wst.a4 != nil {
		hello.A4 = wst.a4()
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		applog.Warnf("WebSocketTransport: Hello to %s failed: %v", r.RemoteAddr, err)
		conn.Close()
		return
	}

	id := uuid.NewString()
	wst.clientsMu.Lock()
	select {
	case <-wst.done:
		wst.clientsMu.Unlock()
		conn.Close()
		return
	default:
	}
	wst.clients[conn] = id
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client %s connected from %s, total: %d", id, r.RemoteAddr, total)

	// Readings only flow outwards; reading is how a disconnect is noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.removeClient(conn)
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	id, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	if ok {
		applog.Infof("WebSocketTransport: Client %s disconnected, total: %d", id, total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			msg := Message{Type: MessageReading, Data: data}

			wst.clientsMu.Lock()
			for client, id := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteJSON(msg); err != nil {
					applog.Warnf("WebSocketTransport: Error sending to client %s: %v", id, err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. It never blocks; when the queue is full
// the message is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return errors.New("websocket transport closed")
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		wst.dropped.Add(1)
	}
	return nil
}

// Close disconnects every client and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Info("WebSocketTransport: Closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]string)
		wst.clientsMu.Unlock()

		err = wst.server.Close()
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
