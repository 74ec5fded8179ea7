package sqlstore

import (
	"database/sql"
	"errors"

	"github.com/askly/chat/internal/models"
	"github.com/askly/chat/internal/store"
)

func (s *SQLStore) CreateChat(name string, ownerID int, direct bool) (int64, error) {
	var id int64
	query := s.rebind("INSERT INTO chats (name, owner_id, is_direct) VALUES (?, ?, ?) RETURNING id")
	err := s.db.QueryRow(query, name, ownerID, direct).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindDirectChat returns the existing one-on-one chat between two users, if
// any. Direct chats are deduplicated: the handler calls this before creating
// a new one.
func (s *SQLStore) FindDirectChat(userA, userB int) (int, error) {
	var id int
	query := s.rebind(`
		SELECT c.id
		FROM chats c
		JOIN participants pa ON c.id = pa.chat_id AND pa.user_id = ?
		JOIN participants pb ON c.id = pb.chat_id AND pb.user_id = ?
		WHERE c.is_direct
		LIMIT 1
	`)
	err := s.db.QueryRow(query, userA, userB).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return id, err
}

func (s *SQLStore) GetChat(chatID int) (*models.Chat, error) {
	var chat models.Chat
	query := s.rebind("SELECT id, name, owner_id, is_direct, created_at FROM chats WHERE id = ?")
	err := s.db.QueryRow(query, chatID).Scan(&chat.ID, &chat.Name, &chat.OwnerID, &chat.IsDirect, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *SQLStore) GetUserChats(userID int) ([]models.ChatSummary, error) {
	query := s.rebind(`
		SELECT c.id, c.name, c.owner_id, c.is_direct, c.created_at,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.chat_id = c.id AND m.id > p.last_read_message_id AND m.user_id != p.user_id)
		FROM chats c
		JOIN participants p ON c.id = p.chat_id
		WHERE p.user_id = ?
		ORDER BY c.id
	`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.ChatSummary
	for rows.Next() {
		var c models.ChatSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &c.IsDirect, &c.CreatedAt, &c.UnreadCount); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		last, err := s.lastMessage(chats[i].ID)
		if err != nil {
			return nil, err
		}
		chats[i].LastMessage = last
	}
	return chats, nil
}

func (s *SQLStore) lastMessage(chatID int) (*models.Message, error) {
	msgs, err := s.GetChatMessages(chatID, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

func (s *SQLStore) GetChatOwner(chatID int) (int, error) {
	var ownerID int
	query := s.rebind("SELECT owner_id FROM chats WHERE id = ?")
	err := s.db.QueryRow(query, chatID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return ownerID, err
}

func (s *SQLStore) DeleteChat(chatID int) error {
	// Delete messages first (foreign key constraint)
	query := s.rebind("DELETE FROM messages WHERE chat_id = ?")
	if _, err := s.db.Exec(query, chatID); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM participants WHERE chat_id = ?")
	if _, err := s.db.Exec(query, chatID); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM chats WHERE id = ?")
	_, err := s.db.Exec(query, chatID)
	return err
}

func (s *SQLStore) AddParticipant(chatID, userID int) error {
	query := s.rebind("INSERT INTO participants (chat_id, user_id) VALUES (?, ?)")
	_, err := s.db.Exec(query, chatID, userID)
	return err
}

func (s *SQLStore) RemoveParticipant(chatID, userID int) error {
	query := s.rebind("DELETE FROM participants WHERE chat_id = ? AND user_id = ?")
	result, err := s.db.Exec(query, chatID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) IsParticipant(chatID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM participants WHERE chat_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, chatID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) GetChatParticipants(chatID int) ([]models.User, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.email
		FROM users u
		JOIN participants p ON u.id = p.user_id
		WHERE p.chat_id = ?
		ORDER BY u.username
	`)
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
			return nil, err
		}
		u.Email = maskEmail(u.Email)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) GetParticipantIDs(chatID int) ([]int, error) {
	query := s.rebind("SELECT user_id FROM participants WHERE chat_id = ?")
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkRead advances the caller's read marker. It never moves backwards, so a
// stale client re-reading old history cannot resurrect unread counts.
func (s *SQLStore) MarkRead(chatID, userID, messageID int) error {
	query := s.rebind(`
		UPDATE participants SET last_read_message_id = ?
		WHERE chat_id = ? AND user_id = ? AND last_read_message_id < ?
	`)
	_, err := s.db.Exec(query, messageID, chatID, userID, messageID)
	return err
}
