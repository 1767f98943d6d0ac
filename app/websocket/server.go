package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"YellowbellPOS/app/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	TypeEvent        MessageType = "event"
	TypeNotification MessageType = "notification"
	TypeHeartbeat    MessageType = "heartbeat"
	TypeAuthResponse MessageType = "auth_response"
	TypeActionResult MessageType = "action_result"

	// Sent by clients
	TypeKitchenCook MessageType = "kitchen_cook"
	TypeUndoCook    MessageType = "undo_cook"
	TypeDeliver     MessageType = "deliver"
	TypeUndeliver   MessageType = "undeliver"
)

// ClientType represents the type of connected client
type ClientType string

const (
	ClientPOS     ClientType = "pos"
	ClientKitchen ClientType = "kitchen"
)

const sendBufferSize = 256

// Message represents a WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	ClientID  string          `json:"client_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ActionData is the payload of a client action
type ActionData struct {
	KitchenItemID string `json:"kitchen_item_id,omitempty"`
	ItemName      string `json:"item_name,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
}

// ActionResult answers a client action
type ActionResult struct {
	Action MessageType `json:"action"`
	OK     bool        `json:"ok"`
	Error  string      `json:"error,omitempty"`
}

// KitchenActions are the mutations clients may trigger over the socket
type KitchenActions interface {
	MarkItemAsCooked(kitchenItemID string, qty int) error
	UndoCooked(itemName string, qty int) error
	MarkOrderAsDelivered(orderID string) error
	MarkOrderAsUndelivered(orderID string) error
}

// Client represents a connected WebSocket client
type Client struct {
	ID          string
	Type        ClientType
	Connection  *websocket.Conn
	Send        chan []byte
	Server      *Server
	ConnectedAt time.Time
	RemoteAddr  string
}

type outbound struct {
	data     []byte
	audience []ClientType // nil means everyone
}

// Server is the live feed hub for kitchen and POS displays
type Server struct {
	clients    map[string]*Client
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	upgrader   websocket.Upgrader
	mu         sync.RWMutex

	addr     string
	actions  KitchenActions
	rest     *RESTHandlers
	http     *http.Server
	announce bool

	hubOnce  sync.Once
	stop     chan struct{}
	stopOnce sync.Once
	mdns     *zeroconf.Server
}

// NewServer creates a hub listening on addr (":8080"). actions and snapshots may be nil.
func NewServer(addr string, actions KitchenActions, snapshots SnapshotProvider) *Server {
	s := &Server{
		clients:    make(map[string]*Client),
		broadcast:  make(chan outbound, sendBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		addr:       addr,
		actions:    actions,
		stop:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Displays connect from the local network
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if snapshots != nil {
		s.rest = NewRESTHandlers(snapshots, actions)
	}
	return s
}

// EnableMDNS announces the feed on the LAN when the server starts
func (s *Server) EnableMDNS(enabled bool) {
	s.announce = enabled
}

// Handler returns the HTTP routes: /ws, /health and the REST API
func (s *Server) Handler() http.Handler {
	s.startHub()

	r := chi.NewRouter()
	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)
	if s.rest != nil {
		r.Route("/api", s.rest.RegisterRoutes)
	}
	return r
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.announce {
		go s.startMDNS()
	}

	log.Printf("WebSocket server starting on %s", s.addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// startMDNS announces the feed via mDNS/Zeroconf
func (s *Server) startMDNS() {
	_, portStr, err := net.SplitHostPort(s.addr)
	if err != nil {
		log.Printf("mDNS: Invalid address %s: %v", s.addr, err)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("mDNS: Invalid port %s: %v", portStr, err)
		return
	}

	server, err := zeroconf.Register(
		"Yellowbell POS",
		"_yellowbell._tcp",
		"local.",
		port,
		[]string{"version=1.0", "path=/ws"},
		nil,
	)
	if err != nil {
		log.Printf("mDNS: Failed to register service: %v", err)
		return
	}

	s.mu.Lock()
	s.mdns = server
	s.mu.Unlock()
	log.Println("mDNS: feed announced on _yellowbell._tcp.local")
}

// Stop shuts the HTTP server, the mDNS announcement and every client down
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.http != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.http.Shutdown(ctx); err != nil {
				log.Printf("WebSocket server shutdown: %v", err)
			}
		}

		s.mu.Lock()
		if s.mdns != nil {
			s.mdns.Shutdown()
			s.mdns = nil
			log.Println("mDNS: Service announcement stopped")
		}
		s.mu.Unlock()

		close(s.stop)
	})
}

func (s *Server) startHub() {
	s.hubOnce.Do(func() {
		go s.run()
	})
}

// run owns the client set
func (s *Server) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			log.Printf("Client registered: %s (type: %s)", client.ID, client.Type)
			s.sendAuthResponse(client)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.Send)
				log.Printf("Client unregistered: %s", client.ID)
			}
			s.mu.Unlock()

		case msg := <-s.broadcast:
			s.mu.Lock()
			for id, client := range s.clients {
				if !msg.reaches(client.Type) {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					// Too slow to keep up
					delete(s.clients, id)
					close(client.Send)
				}
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.sendHeartbeat()

		case <-s.stop:
			s.mu.Lock()
			for id, client := range s.clients {
				delete(s.clients, id)
				close(client.Send)
			}
			s.mu.Unlock()
			return
		}
	}
}

func (o outbound) reaches(t ClientType) bool {
	if o.audience == nil {
		return true
	}
	for _, a := range o.audience {
		if a == t {
			return true
		}
	}
	return false
}

// Publish implements the event sink: kitchen events go to every display,
// the rest only to POS clients. It never blocks.
func (s *Server) Publish(_ context.Context, evt models.Event) {
	msgType := TypeEvent
	audience := []ClientType{ClientPOS}
	switch {
	case evt.Type == models.EventNotification:
		msgType = TypeNotification
		audience = nil
	case evt.IsKitchenEvent():
		audience = nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("⚠️ Could not encode %s for clients: %v", evt.Type, err)
		return
	}
	s.enqueue(Message{Type: msgType, Timestamp: evt.Timestamp, Data: data}, audience)
}

func (s *Server) enqueue(message Message, audience []ClientType) {
	s.startHub()
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("⚠️ Could not encode %s message: %v", message.Type, err)
		return
	}
	select {
	case s.broadcast <- outbound{data: data, audience: audience}:
	default:
		log.Printf("⚠️ Broadcast queue full, dropping %s message", message.Type)
	}
}

// handleWebSocket handles WebSocket connection upgrades
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientType := ClientType(r.URL.Query().Get("type"))
	if clientType != ClientKitchen {
		clientType = ClientPOS
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:          uuid.NewString(),
		Type:        clientType,
		Connection:  conn,
		Send:        make(chan []byte, sendBufferSize),
		Server:      s,
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	select {
	case s.register <- client:
	case <-s.stop:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// handleHealth handles health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"clients": clientCount,
		"time":    time.Now().UTC(),
	})
}

// readPump handles reading messages from the client
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Server.unregister <- c:
		case <-c.Server.stop:
		}
		c.Connection.Close()
	}()

	c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := c.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}
		c.handleMessage(&message)
	}
}

// writePump handles writing messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage runs a client action and answers the sender
func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case TypeHeartbeat:
		c.reply(Message{Type: TypeHeartbeat, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{"status":"alive"}`)})
		return
	case TypeKitchenCook, TypeUndoCook, TypeDeliver, TypeUndeliver:
	default:
		log.Printf("Unknown message type %s from client %s", message.Type, c.ID)
		return
	}

	var data ActionData
	if err := json.Unmarshal(message.Data, &data); err != nil {
		c.replyResult(message.Type, fmt.Errorf("invalid payload: %w", err))
		return
	}
	c.replyResult(message.Type, c.Server.dispatch(c.Type, message.Type, data))
}

// dispatch maps an action to the backend. Cook and undo are kitchen-only.
func (s *Server) dispatch(from ClientType, action MessageType, data ActionData) error {
	if s.actions == nil {
		return fmt.Errorf("actions are not available")
	}
	switch action {
	case TypeKitchenCook:
		if from != ClientKitchen {
			return fmt.Errorf("only kitchen clients can cook")
		}
		return s.actions.MarkItemAsCooked(data.KitchenItemID, data.Quantity)
	case TypeUndoCook:
		if from != ClientKitchen {
			return fmt.Errorf("only kitchen clients can undo cooking")
		}
		return s.actions.UndoCooked(data.ItemName, data.Quantity)
	case TypeDeliver:
		return s.actions.MarkOrderAsDelivered(data.OrderID)
	case TypeUndeliver:
		return s.actions.MarkOrderAsUndelivered(data.OrderID)
	}
	return fmt.Errorf("unknown action %s", action)
}

func (c *Client) replyResult(action MessageType, err error) {
	result := ActionResult{Action: action, OK: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	data, _ := json.Marshal(result)
	c.reply(Message{Type: TypeActionResult, Timestamp: time.Now().UTC(), Data: data})
}

// reply sends to this client only. It goes through the hub lock so it cannot
// race with the hub closing Send.
func (c *Client) reply(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	c.Server.mu.RLock()
	defer c.Server.mu.RUnlock()
	if _, ok := c.Server.clients[c.ID]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("⚠️ Client %s send buffer full", c.ID)
	}
}

func (s *Server) sendHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := json.Marshal(Message{Type: TypeHeartbeat, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)})
	for id, client := range s.clients {
		select {
		case client.Send <- data:
		default:
			delete(s.clients, id)
			close(client.Send)
		}
	}
}

// sendAuthResponse greets a new client with its id
func (s *Server) sendAuthResponse(client *Client) {
	data, _ := json.Marshal(map[string]interface{}{
		"success":   true,
		"client_id": client.ID,
		"type":      client.Type,
	})
	client.reply(Message{Type: TypeAuthResponse, ClientID: client.ID, Timestamp: time.Now().UTC(), Data: data})
}

// GetConnectedClients returns a summary of connected clients
func (s *Server) GetConnectedClients() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]map[string]interface{}, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, map[string]interface{}{
			"id":           client.ID,
			"type":         client.Type,
			"connected_at": client.ConnectedAt,
			"remote_addr":  client.RemoteAddr,
		})
	}
	return clients
}
