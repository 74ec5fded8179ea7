package sqlstore

import (
	"testing"

	"github.com/askly/chat/internal/models"
)

func TestSaveMessage(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := mustCreateUser(t, "user1")
	chatID, _ := testStore.CreateChat("Chat 1", user.ID, false)
	testStore.AddParticipant(int(chatID), user.ID)

	msg := &models.Message{ChatID: int(chatID), UserID: user.ID, ClientID: "client-1", Content: "Hello"}
	if err := testStore.SaveMessage(msg); err != nil {
		t.Fatalf("Failed to save message: %v", err)
	}
	if msg.ID == 0 {
		t.Error("Expected SaveMessage to fill the ID")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("Expected SaveMessage to fill the timestamp")
	}

	messages, err := testStore.GetChatMessages(int(chatID), 0, 0)
	if err != nil {
		t.Fatalf("Failed to get messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	if messages[0].Content != "Hello" {
		t.Errorf("Expected message content 'Hello', got '%s'", messages[0].Content)
	}
	if messages[0].Username != "user1" {
		t.Errorf("Expected username 'user1', got '%s'", messages[0].Username)
	}
	if messages[0].ClientID != "client-1" {
		t.Errorf("Expected client ID to round-trip, got '%s'", messages[0].ClientID)
	}
}

func TestGetChatMessagesPaging(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := mustCreateUser(t, "user1")
	chatID, _ := testStore.CreateChat("Chat 1", user.ID, false)
	testStore.AddParticipant(int(chatID), user.ID)

	var ids []int
	for _, content := range []string{"one", "two", "three", "four", "five"} {
		msg := &models.Message{ChatID: int(chatID), UserID: user.ID, Content: content}
		if err := testStore.SaveMessage(msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	// Newest page, chronological order
	page, err := testStore.GetChatMessages(int(chatID), 0, 2)
	if err != nil {
		t.Fatalf("GetChatMessages failed: %v", err)
	}
	if len(page) != 2 || page[0].Content != "four" || page[1].Content != "five" {
		t.Errorf("Unexpected newest page: %+v", page)
	}

	// Cursor walks backwards
	page, err = testStore.GetChatMessages(int(chatID), page[0].ID, 2)
	if err != nil {
		t.Fatalf("GetChatMessages failed: %v", err)
	}
	if len(page) != 2 || page[0].Content != "two" || page[1].Content != "three" {
		t.Errorf("Unexpected second page: %+v", page)
	}

	// Cursor older than everything yields an empty page
	page, err = testStore.GetChatMessages(int(chatID), ids[0], 2)
	if err != nil {
		t.Fatalf("GetChatMessages failed: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("Expected empty page, got %d messages", len(page))
	}
}
