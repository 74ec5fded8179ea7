package store

import (
	"errors"

	"github.com/askly/chat/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
)

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	SearchUsers(query string) ([]models.User, error)
	VerifyUser(token string) error

	// Chat operations
	CreateChat(name string, ownerID int, direct bool) (int64, error)
	FindDirectChat(userA, userB int) (int, error)
	GetChat(chatID int) (*models.Chat, error)
	GetUserChats(userID int) ([]models.ChatSummary, error)
	GetChatOwner(chatID int) (int, error)
	DeleteChat(chatID int) error

	// Participant operations
	AddParticipant(chatID, userID int) error
	RemoveParticipant(chatID, userID int) error
	IsParticipant(chatID, userID int) (bool, error)
	GetChatParticipants(chatID int) ([]models.User, error)
	GetParticipantIDs(chatID int) ([]int, error)
	MarkRead(chatID, userID, messageID int) error

	// Message operations
	SaveMessage(msg *models.Message) error
	GetChatMessages(chatID, beforeID, limit int) ([]models.Message, error)
}
