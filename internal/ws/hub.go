package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/askly/chat/internal/models"
	"github.com/askly/chat/internal/moderation"
	"github.com/askly/chat/internal/store"
)

var (
	ErrNotParticipant = errors.New("not a participant of this chat")
	ErrEmptyMessage   = errors.New("message content is empty")
)

// clientFrame is what clients send over the socket.
type clientFrame struct {
	Type     string `json:"type"`
	ChatID   int    `json:"chat_id"`
	ClientID string `json:"client_id"`
	Content  string `json:"content"`
}

type inboundFrame struct {
	client *Client
	frame  clientFrame
}

// Hub owns every local websocket connection and one room per chat. All map
// access happens under mu: the Run loop takes it per case, and the REST
// handlers call the exported methods from their own goroutines.
type Hub struct {
	mu sync.Mutex

	// Registered clients.
	clients map[*Client]bool

	// Connections per user; a user with several tabs has several clients.
	byUser map[int]map[*Client]bool

	// Room per chat: the clients that receive that chat's events.
	rooms map[int]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame

	// Closed when Run returns; the pumps select on it so they never block
	// handing a client back to a stopped hub.
	done chan struct{}

	store  store.Store
	mod    *moderation.Moderator
	bridge Bridge
	logger *zap.Logger
}

func NewHub(st store.Store, mod *moderation.Moderator, bridge Bridge, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[int]map[*Client]bool),
		rooms:      make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame, 64),
		done:       make(chan struct{}),
		store:      st,
		mod:        mod,
		bridge:     bridge,
		logger:     logger,
	}
}

// Run processes registrations and inbound frames until ctx is cancelled.
// Remote events from other instances are applied as-is, without
// re-persisting or re-publishing.
func (h *Hub) Run(ctx context.Context) {
	h.bridge.Subscribe(ctx, h.applyRemote)

	for {
		select {
		case client := <-h.register:
			h.handleRegister(ctx, client)
		case client := <-h.unregister:
			h.handleUnregister(ctx, client)
		case in := <-h.inbound:
			h.handleInbound(ctx, in)
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.dropClientLocked(client)
			}
			h.mu.Unlock()
			close(h.done)
			return
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if h.byUser[client.userID] == nil {
		h.byUser[client.userID] = make(map[*Client]bool)
	}
	first := len(h.byUser[client.userID]) == 0
	h.byUser[client.userID][client] = true
	h.mu.Unlock()

	// Join a room per chat the user belongs to.
	chats, err := h.store.GetUserChats(client.userID)
	if err != nil {
		h.logger.Error("load user chats", zap.Int("user_id", client.userID), zap.Error(err))
	} else {
		h.mu.Lock()
		for _, c := range chats {
			h.joinRoomLocked(c.ID, client)
		}
		h.mu.Unlock()
	}

	if first {
		if err := h.bridge.SetOnline(ctx, client.userID); err != nil {
			h.logger.Warn("set online", zap.Error(err))
		}
	}
	h.broadcastPresence(ctx)
}

func (h *Hub) handleUnregister(ctx context.Context, client *Client) {
	h.mu.Lock()
	dropped := h.dropClientLocked(client)
	last := dropped && len(h.byUser[client.userID]) == 0
	h.mu.Unlock()

	if !dropped {
		return
	}
	if last {
		if err := h.bridge.SetOffline(ctx, client.userID); err != nil {
			h.logger.Warn("set offline", zap.Error(err))
		}
	}
	h.broadcastPresence(ctx)
}

// dropClientLocked removes the client from every map and closes its send
// channel. Safe to call twice; the second call is a no-op.
func (h *Hub) dropClientLocked(client *Client) bool {
	if !h.clients[client] {
		return false
	}
	delete(h.clients, client)
	if conns := h.byUser[client.userID]; conns != nil {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.byUser, client.userID)
		}
	}
	for _, room := range h.rooms {
		delete(room, client)
	}
	close(client.send)
	return true
}

func (h *Hub) joinRoomLocked(chatID int, client *Client) {
	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*Client]bool)
	}
	h.rooms[chatID][client] = true
}

func (h *Hub) handleInbound(ctx context.Context, in inboundFrame) {
	switch in.frame.Type {
	case "message.send":
		if _, err := h.SendMessage(ctx, in.client.userID, in.frame.ChatID, in.frame.ClientID, in.frame.Content); err != nil {
			in.client.sendStatus(err.Error())
		}
	case "typing":
		ok, err := h.store.IsParticipant(in.frame.ChatID, in.client.userID)
		if err != nil || !ok {
			return
		}
		h.Broadcast(ctx, models.Event{
			Type:   models.EventTyping,
			ChatID: in.frame.ChatID,
			Payload: map[string]any{
				"user_id":  in.client.userID,
				"username": in.client.username,
			},
		})
	default:
		in.client.sendStatus("unknown frame type")
	}
}

// SendMessage validates, censors, persists and fans out a message. Both the
// socket path and the REST path go through here, so history and the live
// view cannot diverge.
func (h *Hub) SendMessage(ctx context.Context, userID, chatID int, clientID, content string) (*models.Message, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}
	ok, err := h.store.IsParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if clientID == "" {
		clientID = uuid.NewString()
	}

	msg := &models.Message{
		ChatID:   chatID,
		UserID:   userID,
		Username: user.Username,
		ClientID: clientID,
		Content:  h.mod.Censor(content),
	}
	if err := h.store.SaveMessage(msg); err != nil {
		return nil, err
	}

	h.Broadcast(ctx, models.Event{Type: models.EventMessageNew, ChatID: chatID, Payload: msg})
	return msg, nil
}

// Broadcast delivers the event locally and publishes it to the bridge for
// the other instances. ChatID routes to a room, UserID to one user's
// connections, neither to every local client.
func (h *Hub) Broadcast(ctx context.Context, ev models.Event) {
	h.deliverLocal(ev)
	if err := h.bridge.Publish(ctx, ev); err != nil {
		h.logger.Warn("bridge publish", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (h *Hub) applyRemote(ev models.Event) {
	h.deliverLocal(ev)
}

func (h *Hub) deliverLocal(ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case ev.ChatID != 0:
		for client := range h.rooms[ev.ChatID] {
			h.trySendLocked(client, data)
		}
	case ev.UserID != 0:
		for client := range h.byUser[ev.UserID] {
			h.trySendLocked(client, data)
		}
	default:
		for client := range h.clients {
			h.trySendLocked(client, data)
		}
	}
}

// trySendLocked never blocks: a client whose send buffer is full is evicted.
func (h *Hub) trySendLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.dropClientLocked(client)
	}
}

// JoinChat subscribes a user's live connections to a chat room. Called by
// the REST handlers when a chat is created or a participant added.
func (h *Hub) JoinChat(chatID, userID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.byUser[userID] {
		h.joinRoomLocked(chatID, client)
	}
}

// LeaveChat unsubscribes a user's connections from a chat room.
func (h *Hub) LeaveChat(chatID, userID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.byUser[userID] {
		if room := h.rooms[chatID]; room != nil {
			delete(room, client)
		}
	}
}

// DropRoom removes a room entirely (chat deleted).
func (h *Hub) DropRoom(chatID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, chatID)
}

func (h *Hub) broadcastPresence(ctx context.Context) {
	online, err := h.bridge.OnlineUsers(ctx)
	if err != nil {
		h.logger.Warn("online users", zap.Error(err))
		h.mu.Lock()
		online = lo.Keys(h.byUser)
		h.mu.Unlock()
	}
	h.Broadcast(ctx, models.Event{
		Type:    models.EventPresence,
		Payload: map[string]any{"online_user_ids": lo.Uniq(online)},
	})
}
