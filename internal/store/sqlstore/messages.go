package sqlstore

import (
	"github.com/askly/chat/internal/models"
)

// SaveMessage persists the message and fills in its ID and timestamp. The
// caller is expected to have censored the content already; history must match
// what was pushed over the socket.
func (s *SQLStore) SaveMessage(msg *models.Message) error {
	query := s.rebind(`
		INSERT INTO messages (chat_id, user_id, client_id, content)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at
	`)
	return s.db.QueryRow(query, msg.ChatID, msg.UserID, msg.ClientID, msg.Content).Scan(&msg.ID, &msg.CreatedAt)
}

// GetChatMessages returns up to limit messages older than beforeID in
// chronological order. beforeID <= 0 means "newest page".
func (s *SQLStore) GetChatMessages(chatID, beforeID, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := s.rebind(`
		SELECT m.id, m.chat_id, m.user_id, u.username, COALESCE(m.client_id, ''), m.content, m.created_at
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.chat_id = ? AND (? <= 0 OR m.id < ?)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?
	`)
	rows, err := s.db.Query(query, chatID, beforeID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.ClientID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
