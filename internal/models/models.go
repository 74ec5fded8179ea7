package models

import "time"

type User struct {
	ID                int    `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Password          string `json:"-"`
	IsVerified        bool   `json:"is_verified"`
	VerificationToken string `json:"-"`
}

type Chat struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int       `json:"owner_id"`
	IsDirect  bool      `json:"is_direct"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is what the chat list endpoint returns: the chat itself plus
// the newest message and how many messages the caller has not read yet.
type ChatSummary struct {
	Chat
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

type Message struct {
	ID        int       `json:"id"`
	ChatID    int       `json:"chat_id"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	ClientID  string    `json:"client_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
