package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/askly/chat/internal/email"
	"github.com/askly/chat/internal/middleware"
	"github.com/askly/chat/internal/models"
	"github.com/askly/chat/internal/store"
	"github.com/askly/chat/internal/ws"
)

type ChatHandler struct {
	Store  store.Store
	Hub    *ws.Hub
	Email  *email.Sender
	Logger *zap.Logger
}

type CreateChatRequest struct {
	Direct    bool   `json:"direct"`
	PeerID    int    `json:"peer_id" validate:"required_if=Direct true"`
	Name      string `json:"name" validate:"max=80,required_if=Direct false"`
	MemberIDs []int  `json:"member_ids" validate:"dive,gt=0"`
}

type InviteUserRequest struct {
	Username string `json:"username" validate:"required"`
}

type PostMessageRequest struct {
	Content  string `json:"content" validate:"required,max=4000"`
	ClientID string `json:"client_id" validate:"omitempty,uuid4"`
}

type MarkReadRequest struct {
	MessageID int `json:"message_id" validate:"required,gt=0"`
}

// CreateChat creates a direct or group chat. Direct chats are deduplicated:
// asking for a direct chat with the same peer returns the existing one.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req CreateChatRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if req.Direct {
		h.createDirectChat(w, r, userID, req.PeerID)
		return
	}

	memberIDs := lo.Uniq(append(req.MemberIDs, userID))
	for _, id := range memberIDs {
		if _, err := h.Store.GetUserByID(id); err != nil {
			writeError(w, http.StatusBadRequest, "unknown member "+strconv.Itoa(id))
			return
		}
	}

	chatID, err := h.Store.CreateChat(req.Name, userID, false)
	if err != nil {
		h.Logger.Error("create chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	for _, id := range memberIDs {
		if err := h.Store.AddParticipant(int(chatID), id); err != nil {
			h.Logger.Error("add participant", zap.Int("user_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.Hub.JoinChat(int(chatID), id)
	}

	h.notifyChatCreated(r, int(chatID))
	writeJSON(w, http.StatusCreated, map[string]int64{"id": chatID})
}

func (h *ChatHandler) createDirectChat(w http.ResponseWriter, r *http.Request, userID, peerID int) {
	if peerID == userID {
		writeError(w, http.StatusBadRequest, "cannot open a direct chat with yourself")
		return
	}
	if _, err := h.Store.GetUserByID(peerID); err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if existing, err := h.Store.FindDirectChat(userID, peerID); err == nil {
		writeJSON(w, http.StatusOK, map[string]int{"id": existing})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.Logger.Error("find direct chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	chatID, err := h.Store.CreateChat("", userID, true)
	if err != nil {
		h.Logger.Error("create chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	for _, id := range []int{userID, peerID} {
		if err := h.Store.AddParticipant(int(chatID), id); err != nil {
			h.Logger.Error("add participant", zap.Int("user_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.Hub.JoinChat(int(chatID), id)
	}

	h.notifyChatCreated(r, int(chatID))
	writeJSON(w, http.StatusCreated, map[string]int64{"id": chatID})
}

func (h *ChatHandler) notifyChatCreated(r *http.Request, chatID int) {
	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		h.Logger.Error("load chat", zap.Int("chat_id", chatID), zap.Error(err))
		return
	}
	h.Hub.Broadcast(r.Context(), models.Event{
		Type:    models.EventChatCreated,
		ChatID:  chatID,
		Payload: chat,
	})
}

func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	chats, err := h.Store.GetUserChats(userID)
	if err != nil {
		h.Logger.Error("list chats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if chats == nil {
		chats = []models.ChatSummary{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID, _, ok := h.memberOrReject(w, r)
	if !ok {
		return
	}

	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	participants, err := h.Store.GetChatParticipants(chatID)
	if err != nil {
		h.Logger.Error("load participants", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chat":         chat,
		"participants": participants,
	})
}

// DeleteChat removes a chat and its history. Group chats are owner-only;
// direct chats have no owner role, either side may close the conversation.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chatIDVar(r)
	userID := middleware.UserID(r)

	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if chat.IsDirect {
		member, err := h.Store.IsParticipant(chatID, userID)
		if err != nil {
			h.Logger.Error("membership check", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !member {
			writeError(w, http.StatusForbidden, "not a participant")
			return
		}
	} else if chat.OwnerID != userID {
		writeError(w, http.StatusForbidden, "only the owner can delete a chat")
		return
	}

	// Tell the room before the rows disappear.
	h.Hub.Broadcast(r.Context(), models.Event{Type: models.EventChatDeleted, ChatID: chatID})

	if err := h.Store.DeleteChat(chatID); err != nil {
		h.Logger.Error("delete chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.Hub.DropRoom(chatID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	chatID, userID, ok := h.memberOrReject(w, r)
	if !ok {
		return
	}

	var req InviteUserRequest
	if !decodeValid(w, r, &req) {
		return
	}

	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if chat.IsDirect {
		writeError(w, http.StatusBadRequest, "cannot invite into a direct chat")
		return
	}

	invitee, err := h.Store.GetUserByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	already, err := h.Store.IsParticipant(chatID, invitee.ID)
	if err != nil {
		h.Logger.Error("membership check", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if already {
		writeError(w, http.StatusConflict, "already a participant")
		return
	}

	if err := h.Store.AddParticipant(chatID, invitee.ID); err != nil {
		h.Logger.Error("add participant", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.Hub.JoinChat(chatID, invitee.ID)
	h.Hub.Broadcast(r.Context(), models.Event{
		Type:    models.EventParticipantAdded,
		ChatID:  chatID,
		Payload: map[string]any{"user_id": invitee.ID, "username": invitee.Username},
	})

	if h.Email != nil {
		inviter, err := h.Store.GetUserByID(userID)
		if err == nil {
			go func() {
				if err := h.Email.SendChatInvite(invitee.Email, invitee.Username, inviter.Username, chat.Name); err != nil {
					h.Logger.Warn("send invite email", zap.Error(err))
				}
			}()
		}
	}

	w.WriteHeader(http.StatusOK)
}

// LeaveChat removes the caller from a group chat. A direct chat always has
// exactly two participants; the conversation is deleted, not left.
func (h *ChatHandler) LeaveChat(w http.ResponseWriter, r *http.Request) {
	chatID := chatIDVar(r)
	userID := middleware.UserID(r)

	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if chat.IsDirect {
		writeError(w, http.StatusBadRequest, "cannot leave a direct chat, delete it instead")
		return
	}
	if chat.OwnerID == userID {
		writeError(w, http.StatusBadRequest, "the owner cannot leave, delete the chat instead")
		return
	}

	if err := h.Store.RemoveParticipant(chatID, userID); err != nil {
		writeError(w, http.StatusNotFound, "not a participant")
		return
	}

	h.Hub.LeaveChat(chatID, userID)
	h.Hub.Broadcast(r.Context(), models.Event{
		Type:    models.EventParticipantRemoved,
		ChatID:  chatID,
		Payload: map[string]any{"user_id": userID},
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	chatID := chatIDVar(r)
	userID := middleware.UserID(r)
	targetID, err := strconv.Atoi(mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if chat.IsDirect {
		writeError(w, http.StatusBadRequest, "not a group chat")
		return
	}
	if chat.OwnerID != userID {
		writeError(w, http.StatusForbidden, "only the owner can remove participants")
		return
	}
	if targetID == userID {
		writeError(w, http.StatusBadRequest, "use leave or delete instead")
		return
	}

	if err := h.Store.RemoveParticipant(chatID, targetID); err != nil {
		writeError(w, http.StatusNotFound, "not a participant")
		return
	}

	h.Hub.LeaveChat(chatID, targetID)
	h.Hub.Broadcast(r.Context(), models.Event{
		Type:    models.EventParticipantRemoved,
		ChatID:  chatID,
		Payload: map[string]any{"user_id": targetID},
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) GetChatParticipants(w http.ResponseWriter, r *http.Request) {
	chatID, _, ok := h.memberOrReject(w, r)
	if !ok {
		return
	}

	participants, err := h.Store.GetChatParticipants(chatID)
	if err != nil {
		h.Logger.Error("load participants", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID, _, ok := h.memberOrReject(w, r)
	if !ok {
		return
	}

	beforeID, _ := strconv.Atoi(r.URL.Query().Get("before"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.Store.GetChatMessages(chatID, beforeID, limit)
	if err != nil {
		h.Logger.Error("load messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// PostMessage is the REST variant of the socket "message.send" frame; both
// go through the hub so fan-out is identical.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chatIDVar(r)
	userID := middleware.UserID(r)

	var req PostMessageRequest
	if !decodeValid(w, r, &req) {
		return
	}

	msg, err := h.Hub.SendMessage(r.Context(), userID, chatID, req.ClientID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, ws.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "not a participant")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "chat not found")
		default:
			h.Logger.Error("send message", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	chatID, userID, ok := h.memberOrReject(w, r)
	if !ok {
		return
	}

	var req MarkReadRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.Store.MarkRead(chatID, userID, req.MessageID); err != nil {
		h.Logger.Error("mark read", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func chatIDVar(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

// memberOrReject resolves the chat ID from the route and verifies the caller
// is a participant.
func (h *ChatHandler) memberOrReject(w http.ResponseWriter, r *http.Request) (chatID, userID int, ok bool) {
	chatID = chatIDVar(r)
	userID = middleware.UserID(r)

	isMember, err := h.Store.IsParticipant(chatID, userID)
	if err != nil {
		h.Logger.Error("membership check", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return 0, 0, false
	}
	if !isMember {
		writeError(w, http.StatusForbidden, "not a participant")
		return 0, 0, false
	}
	return chatID, userID, true
}
