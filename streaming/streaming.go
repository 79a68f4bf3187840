// Package streaming pushes summaries of newly stored traces to websocket
// clients subscribed to the programs those traces invoked.
package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/gofiber/websocket/v2"
	"github.com/kdimentionaltree/sol-trace-go/cache"
	"github.com/kdimentionaltree/sol-trace-go/index"
	"github.com/kdimentionaltree/sol-trace-go/trace"
	"github.com/sirupsen/logrus"
)

type Subscription struct {
	Programs   mapset.Set[trace.ProgramId]
	OnlyFailed bool
}

func (s *Subscription) Replace(programs []trace.ProgramId, onlyFailed bool) {
	s.Programs = mapset.NewSet(programs...)
	s.OnlyFailed = onlyFailed
}

func (s *Subscription) Unsubscribe(programs []trace.ProgramId) {
	s.Programs.RemoveAll(programs...)
}

func (s *Subscription) InterestedIn(event *index.TransactionLogs) bool {
	if s.Programs == nil || s.Programs.IsEmpty() {
		return false
	}
	if s.OnlyFailed && (event.IsSuccess == nil || *event.IsSuccess) {
		return false
	}
	for _, p := range event.Programs {
		if s.Programs.Contains(p) {
			return true
		}
	}
	return false
}

type Client struct {
	ID           string
	Connected    bool
	Subscription Subscription
	SendEvent    func([]byte) error
	sendChan     chan []byte
	mu           sync.Mutex
}

func (c *Client) startSender(manager *ClientManager) {
	go func() {
		for msg := range c.sendChan {
			c.mu.Lock()
			if !c.Connected {
				c.mu.Unlock()
				break
			}
			err := c.SendEvent(msg)
			c.mu.Unlock()
			if err != nil {
				manager.unregister <- c
				break
			}
		}
	}()
}

type ClientManager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan index.TransactionLogs
	logger     *logrus.Logger
	mu         sync.RWMutex
}

func NewClientManager(logger *logrus.Logger) *ClientManager {
	return &ClientManager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan index.TransactionLogs),
		logger:     logger,
	}
}

func (manager *ClientManager) ClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients)
}

func (manager *ClientManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-manager.register:
			manager.mu.Lock()
			client.sendChan = make(chan []byte, 64)
			manager.clients[client.ID] = client
			manager.mu.Unlock()
			client.startSender(manager)
			manager.logger.WithField("client", client.ID).Info("client connected")

		case client := <-manager.unregister:
			manager.mu.Lock()
			if _, ok := manager.clients[client.ID]; ok {
				delete(manager.clients, client.ID)
				close(client.sendChan)
				manager.logger.WithField("client", client.ID).Info("client disconnected")
			}
			manager.mu.Unlock()

		case event := <-manager.broadcast:
			msgBytes, err := json.Marshal(TraceEvent{Type: EventTrace, TransactionLogs: event})
			if err != nil {
				manager.logger.WithError(err).Error("failed to marshal event")
				continue
			}
			manager.mu.RLock()
			for _, client := range manager.clients {
				client.mu.Lock()
				if client.Connected && client.Subscription.InterestedIn(&event) {
					select {
					case client.sendChan <- msgBytes:
					default:
						manager.logger.WithField("client", client.ID).Warn("send buffer full, dropping event")
					}
				}
				client.mu.Unlock()
			}
			manager.mu.RUnlock()
		}
	}
}

// Broadcast hands an event to the manager loop.
func (manager *ClientManager) Broadcast(ctx context.Context, event index.TransactionLogs) {
	select {
	case manager.broadcast <- event:
	case <-ctx.Done():
	}
}

// SubscribeToSummaries forwards summaries published on the channel to
// subscribed clients until ctx is done.
func SubscribeToSummaries(ctx context.Context, channel *cache.Channel[index.TransactionLogs], manager *ClientManager) error {
	sub, err := channel.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	manager.logger.WithField("channel", channel.Name()).Info("subscribed to trace summaries")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			manager.Broadcast(ctx, event)
		}
	}
}

type EventType string

const EventTrace EventType = "trace"

type TraceEvent struct {
	Type EventType `json:"type"`
	index.TransactionLogs
}

type Operation string

const (
	OpPing        Operation = "ping"
	OpSubscribe   Operation = "subscribe" // replaces entire subscription snapshot
	OpUnsubscribe Operation = "unsubscribe"
)

type Envelope struct {
	Id        *string   `json:"id"`
	Operation Operation `json:"operation"`
}

type SubscribeRequest struct {
	Programs   []string `json:"programs"`
	OnlyFailed bool     `json:"only_failed"`
}

type UnsubscribeRequest struct {
	Programs []string `json:"programs"`
}

type StatusResponse struct {
	Id     *string `json:"id,omitempty"`
	Status string  `json:"status"`
}

type ErrorResponse struct {
	Id    *string `json:"id,omitempty"`
	Error string  `json:"error"`
}

func validatePrograms(programs []string, maxPrograms int) ([]trace.ProgramId, error) {
	if len(programs) == 0 {
		return nil, fmt.Errorf("programs are required")
	}
	if maxPrograms > 0 && len(programs) > maxPrograms {
		return nil, fmt.Errorf("too many programs: %d > %d", len(programs), maxPrograms)
	}
	res := make([]trace.ProgramId, len(programs))
	for i, p := range programs {
		key, err := solana.PublicKeyFromBase58(p)
		if err != nil {
			return nil, fmt.Errorf("invalid program id %q: %v", p, err)
		}
		res[i] = trace.ProgramId(key.String())
	}
	return res, nil
}

// send writes a reply outside the sender loop; client.mu serializes writes.
func (c *Client) send(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Connected {
		_ = c.SendEvent(msg)
	}
}

func sendWSJSONErr(c *Client, id *string, err error) {
	c.send(ErrorResponse{Id: id, Error: err.Error()})
}

func sendWSStatus(c *Client, id *string, status string) {
	c.send(StatusResponse{Id: id, Status: status})
}

func WebSocketHandler(manager *ClientManager, maxPrograms int) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		clientID := fmt.Sprintf("%s-%s", c.RemoteAddr(), time.Now().Format(time.RFC3339Nano))
		client := &Client{
			ID:           clientID,
			Connected:    true,
			Subscription: Subscription{Programs: mapset.NewSet[trace.ProgramId]()},
			SendEvent:    func(b []byte) error { return c.WriteMessage(websocket.TextMessage, b) },
		}
		manager.register <- client
		defer func() {
			client.mu.Lock()
			client.Connected = false
			client.mu.Unlock()
			manager.unregister <- client
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				manager.logger.WithField("client", clientID).WithError(err).Debug("ws read")
				return
			}

			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				sendWSJSONErr(client, nil, fmt.Errorf("invalid request envelope: %v", err))
				continue
			}

			switch env.Operation {
			case OpPing:
				sendWSStatus(client, env.Id, "pong")

			case OpSubscribe:
				var req SubscribeRequest
				if err := json.Unmarshal(msg, &req); err != nil {
					sendWSJSONErr(client, env.Id, fmt.Errorf("invalid subscribe request: %v", err))
					continue
				}
				programs, err := validatePrograms(req.Programs, maxPrograms)
				if err != nil {
					sendWSJSONErr(client, env.Id, err)
					continue
				}
				client.mu.Lock()
				client.Subscription.Replace(programs, req.OnlyFailed)
				client.mu.Unlock()
				sendWSStatus(client, env.Id, "subscribed")

			case OpUnsubscribe:
				var req UnsubscribeRequest
				if err := json.Unmarshal(msg, &req); err != nil {
					sendWSJSONErr(client, env.Id, fmt.Errorf("invalid unsubscribe request: %v", err))
					continue
				}
				programs, err := validatePrograms(req.Programs, 0)
				if err != nil {
					sendWSJSONErr(client, env.Id, err)
					continue
				}
				client.mu.Lock()
				client.Subscription.Unsubscribe(programs)
				client.mu.Unlock()
				sendWSStatus(client, env.Id, "unsubscribed")

			default:
				sendWSJSONErr(client, env.Id, fmt.Errorf("unknown operation: %s", env.Operation))
			}
		}
	}
}
