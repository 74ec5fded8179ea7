package sqlstore

import (
	"errors"
	"testing"

	"github.com/askly/chat/internal/models"
	"github.com/askly/chat/internal/store"
)

func TestCreateChat(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	owner := mustCreateUser(t, "owner")

	id, err := testStore.CreateChat("General", owner.ID, false)
	if err != nil {
		t.Errorf("Failed to create chat: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero chat ID")
	}

	chat, err := testStore.GetChat(int(id))
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if chat.Name != "General" || chat.OwnerID != owner.ID || chat.IsDirect {
		t.Errorf("Unexpected chat: %+v", chat)
	}

	ownerID, err := testStore.GetChatOwner(int(id))
	if err != nil || ownerID != owner.ID {
		t.Errorf("Expected owner %d, got %d (err %v)", owner.ID, ownerID, err)
	}
}

func TestFindDirectChat(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	alice := mustCreateUser(t, "alice")
	bob := mustCreateUser(t, "bob")

	_, err := testStore.FindDirectChat(alice.ID, bob.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound before creation, got %v", err)
	}

	chatID, _ := testStore.CreateChat("", alice.ID, true)
	testStore.AddParticipant(int(chatID), alice.ID)
	testStore.AddParticipant(int(chatID), bob.ID)

	// Found regardless of argument order
	found, err := testStore.FindDirectChat(bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("FindDirectChat failed: %v", err)
	}
	if found != int(chatID) {
		t.Errorf("Expected chat %d, got %d", chatID, found)
	}
}

func TestAddParticipant(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := mustCreateUser(t, "user1")
	chatID, _ := testStore.CreateChat("Chat 1", user.ID, false)

	if err := testStore.AddParticipant(int(chatID), user.ID); err != nil {
		t.Errorf("Failed to add participant: %v", err)
	}

	isParticipant, err := testStore.IsParticipant(int(chatID), user.ID)
	if err != nil {
		t.Errorf("IsParticipant failed: %v", err)
	}
	if !isParticipant {
		t.Error("Expected user to be participant")
	}

	ids, err := testStore.GetParticipantIDs(int(chatID))
	if err != nil || len(ids) != 1 || ids[0] != user.ID {
		t.Errorf("Expected participant IDs [%d], got %v (err %v)", user.ID, ids, err)
	}
}

func TestRemoveParticipant(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := mustCreateUser(t, "user1")
	chatID, _ := testStore.CreateChat("Chat 1", user.ID, false)
	testStore.AddParticipant(int(chatID), user.ID)

	if err := testStore.RemoveParticipant(int(chatID), user.ID); err != nil {
		t.Errorf("Failed to remove participant: %v", err)
	}

	if err := testStore.RemoveParticipant(int(chatID), user.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound removing non-member, got %v", err)
	}
}

func TestGetUserChats(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	alice := mustCreateUser(t, "alice")
	bob := mustCreateUser(t, "bob")

	chatID, _ := testStore.CreateChat("Ours", alice.ID, false)
	testStore.AddParticipant(int(chatID), alice.ID)
	testStore.AddParticipant(int(chatID), bob.ID)

	// A chat alice is not part of
	otherID, _ := testStore.CreateChat("Not hers", bob.ID, false)
	testStore.AddParticipant(int(otherID), bob.ID)

	msg := &models.Message{ChatID: int(chatID), UserID: bob.ID, Content: "hi alice"}
	if err := testStore.SaveMessage(msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	chats, err := testStore.GetUserChats(alice.ID)
	if err != nil {
		t.Fatalf("GetUserChats failed: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("Expected 1 chat, got %d", len(chats))
	}
	if chats[0].UnreadCount != 1 {
		t.Errorf("Expected 1 unread, got %d", chats[0].UnreadCount)
	}
	if chats[0].LastMessage == nil || chats[0].LastMessage.Content != "hi alice" {
		t.Errorf("Expected last message preview, got %+v", chats[0].LastMessage)
	}

	// Own messages never count as unread
	bobChats, _ := testStore.GetUserChats(bob.ID)
	for _, c := range bobChats {
		if c.ID == int(chatID) && c.UnreadCount != 0 {
			t.Errorf("Expected 0 unread for sender, got %d", c.UnreadCount)
		}
	}
}

func TestMarkRead(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	alice := mustCreateUser(t, "alice")
	bob := mustCreateUser(t, "bob")
	chatID, _ := testStore.CreateChat("Ours", alice.ID, false)
	testStore.AddParticipant(int(chatID), alice.ID)
	testStore.AddParticipant(int(chatID), bob.ID)

	msg := &models.Message{ChatID: int(chatID), UserID: bob.ID, Content: "one"}
	testStore.SaveMessage(msg)

	if err := testStore.MarkRead(int(chatID), alice.ID, msg.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	chats, _ := testStore.GetUserChats(alice.ID)
	if chats[0].UnreadCount != 0 {
		t.Errorf("Expected 0 unread after MarkRead, got %d", chats[0].UnreadCount)
	}

	// The marker never moves backwards
	testStore.MarkRead(int(chatID), alice.ID, 0)
	chats, _ = testStore.GetUserChats(alice.ID)
	if chats[0].UnreadCount != 0 {
		t.Errorf("Expected marker to stay, got %d unread", chats[0].UnreadCount)
	}
}

func TestDeleteChat(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	owner := mustCreateUser(t, "owner")
	chatID, _ := testStore.CreateChat("Chat to Delete", owner.ID, false)
	testStore.AddParticipant(int(chatID), owner.ID)
	testStore.SaveMessage(&models.Message{ChatID: int(chatID), UserID: owner.ID, Content: "Message"})

	if err := testStore.DeleteChat(int(chatID)); err != nil {
		t.Errorf("Failed to delete chat: %v", err)
	}

	if _, err := testStore.GetChat(int(chatID)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after deletion, got %v", err)
	}

	isParticipant, _ := testStore.IsParticipant(int(chatID), owner.ID)
	if isParticipant {
		t.Error("Expected user to not be participant after deletion")
	}

	messages, _ := testStore.GetChatMessages(int(chatID), 0, 0)
	if len(messages) != 0 {
		t.Error("Expected messages to be deleted")
	}
}
