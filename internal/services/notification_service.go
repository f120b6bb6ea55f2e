package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/faunawatch/backend/internal/utils"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 30 * time.Second
	wsMaxMessageSize = 4096
	wsSendBuffer     = 256
)

// Client is one websocket connection and the set of animal topics it follows.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]bool

	// mu serializes queueing against closeSend so a frame can never land on
	// a closed channel.
	mu     sync.Mutex
	closed bool
}

// trySend queues a frame without blocking. It reports false when the buffer
// is full or the client is already closed.
func (c *Client) trySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once, ending the write pump.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// NotificationType classifies push messages sent to dashboards.
type NotificationType string

const (
	// NotificationTypeBehaviorUpdate for new behavior observations
	NotificationTypeBehaviorUpdate NotificationType = "behavior_update"
	// NotificationTypeAlert for welfare alerts
	NotificationTypeAlert NotificationType = "alert"
	// NotificationTypeSystemEvent for system-wide events
	NotificationTypeSystemEvent NotificationType = "system_event"
)

// NotificationMessage is the frame pushed to clients. Topic is the animal ID
// the message concerns, or empty for system-wide messages.
type NotificationMessage struct {
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Topic     string           `json:"topic"`
	Payload   interface{}      `json:"payload"`
}

// NotificationService fans welfare alerts and behavior updates out to
// connected websocket clients. Clients subscribe per animal; messages for an
// animal only reach its subscribers, broadcasts reach everyone.
type NotificationService struct {
	logger     *utils.Logger
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *NotificationMessage
	topics     map[string]chan *NotificationMessage
	mutex      sync.RWMutex
}

// NewNotificationService starts the hub loop and returns the service.
func NewNotificationService(logger *utils.Logger) *NotificationService {
	service := &NotificationService{
		logger:     logger.Named("notification_service"),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *NotificationMessage),
		topics:     make(map[string]chan *NotificationMessage),
	}

	go service.run()
	return service
}

// RegisterClient attaches an upgraded websocket connection to the hub and
// starts its read and write pumps.
func (s *NotificationService) RegisterClient(conn *websocket.Conn) *Client {
	client := &Client{
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
		topics: make(map[string]bool),
	}

	s.register <- client

	go s.readPump(client)
	go s.writePump(client)

	return client
}

// SubscribeToTopic subscribes a client to one animal's updates.
func (s *NotificationService) SubscribeToTopic(client *Client, topic string) {
	s.mutex.Lock()
	client.topics[topic] = true
	s.mutex.Unlock()

	s.topicChannel(topic)
	s.logger.Debug("Client subscribed to topic", zap.String("topic", topic))
}

// UnsubscribeFromTopic drops a client's subscription. The topic fan-out
// goroutine keeps running for other subscribers.
func (s *NotificationService) UnsubscribeFromTopic(client *Client, topic string) {
	s.mutex.Lock()
	delete(client.topics, topic)
	s.mutex.Unlock()

	s.logger.Debug("Client unsubscribed from topic", zap.String("topic", topic))
}

// Notify broadcasts a message to every connected client.
func (s *NotificationService) Notify(notificationType NotificationType, topic string, payload interface{}) {
	s.broadcast <- &NotificationMessage{
		Type:      notificationType,
		Timestamp: time.Now(),
		Topic:     topic,
		Payload:   payload,
	}
}

// NotifyTopic delivers a message to the clients subscribed to one animal.
func (s *NotificationService) NotifyTopic(topic string, notificationType NotificationType, payload interface{}) {
	s.topicChannel(topic) <- &NotificationMessage{
		Type:      notificationType,
		Timestamp: time.Now(),
		Topic:     topic,
		Payload:   payload,
	}
}

// topicChannel returns the fan-out channel for a topic, creating the channel
// and its delivery goroutine on first use.
func (s *NotificationService) topicChannel(topic string) chan *NotificationMessage {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ch, exists := s.topics[topic]
	if !exists {
		ch = make(chan *NotificationMessage, wsSendBuffer)
		s.topics[topic] = ch
		go s.deliverTopicMessages(topic, ch)
	}
	return ch
}

// run is the hub loop: client registration, unregistration and broadcasts.
func (s *NotificationService) run() {
	for {
		select {
		case client := <-s.register:
			s.mutex.Lock()
			s.clients[client] = true
			s.mutex.Unlock()
			s.logger.Debug("Client registered")

		case client := <-s.unregister:
			s.mutex.Lock()
			delete(s.clients, client)
			s.mutex.Unlock()
			client.closeSend()
			s.logger.Debug("Client unregistered")

		case message := <-s.broadcast:
			for _, client := range s.recipients("") {
				s.sendToClient(client, message)
			}
		}
	}
}

// deliverTopicMessages forwards one topic's messages to its subscribers.
func (s *NotificationService) deliverTopicMessages(topic string, ch chan *NotificationMessage) {
	for message := range ch {
		for _, client := range s.recipients(topic) {
			s.sendToClient(client, message)
		}
	}
}

// recipients snapshots the clients a message should reach, every client when
// topic is empty. The lock is released before any send so sendToClient can
// evict a stalled client without deadlocking against this read lock.
func (s *NotificationService) recipients(topic string) []*Client {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		if topic == "" || client.topics[topic] {
			out = append(out, client)
		}
	}
	return out
}

// sendToClient queues a frame on the client's send buffer. A client that
// cannot keep up is dropped rather than allowed to stall the hub. Callers
// must not hold the hub mutex.
func (s *NotificationService) sendToClient(client *Client, message *NotificationMessage) {
	jsonMessage, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("Failed to marshal notification message",
			zap.Error(err),
			zap.String("type", string(message.Type)),
			zap.String("topic", message.Topic))
		return
	}

	if !client.trySend(jsonMessage) {
		s.mutex.Lock()
		delete(s.clients, client)
		s.mutex.Unlock()
		client.closeSend()
		s.logger.Warn("Client buffer full, connection closed",
			zap.String("topic", message.Topic))
	}
}

// readPump handles inbound frames. Clients subscribe per animal with
// {"action":"subscribe","topic":"a-001"}; anything else is logged and
// ignored.
func (s *NotificationService) readPump(client *Client) {
	defer func() {
		s.unregister <- client
		client.conn.Close()
	}()

	client.conn.SetReadLimit(wsMaxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				s.logger.Warn("Unexpected websocket close", zap.Error(err))
			}
			break
		}

		var clientMsg struct {
			Action string `json:"action"`
			Topic  string `json:"topic"`
		}
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			s.logger.Warn("Invalid client message",
				zap.Error(err),
				zap.ByteString("message", message))
			continue
		}

		switch clientMsg.Action {
		case "subscribe":
			if clientMsg.Topic != "" {
				s.SubscribeToTopic(client, clientMsg.Topic)
			}
		case "unsubscribe":
			if clientMsg.Topic != "" {
				s.UnsubscribeFromTopic(client, clientMsg.Topic)
			}
		}
	}
}

// writePump drains the client's send buffer and keeps the connection alive
// with pings. Pending frames are coalesced into one websocket message.
func (s *NotificationService) writePump(client *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := client.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(client.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-client.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
