package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/askly/chat/internal/auth"
	"github.com/askly/chat/internal/models"
	"github.com/askly/chat/internal/store/sqlstore"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *sqlstore.SQLStore) {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	h := &AuthHandler{
		Store:     st,
		Auth:      auth.New("test-cookie-secret", "test-ticket-secret"),
		Logger:    zap.NewNop(),
		BaseURL:   "http://localhost:8080",
		TicketTTL: time.Minute,
	}
	return h, st
}

func TestSignup(t *testing.T) {
	handler, _ := newAuthHandler(t)

	body, _ := json.Marshal(SignupRequest{
		Username: "testuser",
		Email:    "testuser@example.com",
		Password: "password123",
	})

	req := httptest.NewRequest("POST", "/signup", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.Signup).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusCreated)
	}

	// Test duplicate user
	req = httptest.NewRequest("POST", "/signup", bytes.NewBuffer(body))
	rr = httptest.NewRecorder()
	http.HandlerFunc(handler.Signup).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code for duplicate user: got %v want %v",
			status, http.StatusConflict)
	}
}

func TestSignupValidation(t *testing.T) {
	handler, _ := newAuthHandler(t)

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"short username", SignupRequest{Username: "ab", Email: "a@example.com", Password: "password123"}},
		{"bad email", SignupRequest{Username: "gooduser", Email: "not-an-email", Password: "password123"}},
		{"short password", SignupRequest{Username: "gooduser", Email: "a@example.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.req)
			req := httptest.NewRequest("POST", "/signup", bytes.NewBuffer(body))
			rr := httptest.NewRecorder()
			http.HandlerFunc(handler.Signup).ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", rr.Code)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	handler, st := newAuthHandler(t)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	st.CreateUser(&models.User{
		Username: "testuser",
		Email:    "testuser@example.com",
		Password: string(hashedPassword),
	})

	body, _ := json.Marshal(Credentials{Username: "testuser", Password: "password123"})
	req := httptest.NewRequest("POST", "/login", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.Login).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected a session cookie to be set")
	}
	if cookies[0].Name != auth.SessionCookie {
		t.Errorf("Expected cookie %q, got %q", auth.SessionCookie, cookies[0].Name)
	}

	// Wrong password
	body, _ = json.Marshal(Credentials{Username: "testuser", Password: "wrong-password"})
	req = httptest.NewRequest("POST", "/login", bytes.NewBuffer(body))
	rr = httptest.NewRecorder()
	http.HandlerFunc(handler.Login).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %v", rr.Code)
	}
}

func TestVerify(t *testing.T) {
	handler, st := newAuthHandler(t)

	st.CreateUser(&models.User{
		Username:          "pending",
		Email:             "pending@example.com",
		Password:          "x",
		VerificationToken: "tok-abc",
	})

	req := httptest.NewRequest("GET", "/verify?token=tok-abc", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.Verify).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %v", rr.Code)
	}

	req = httptest.NewRequest("GET", "/verify?token=bogus", nil)
	rr = httptest.NewRecorder()
	http.HandlerFunc(handler.Verify).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for bogus token, got %v", rr.Code)
	}
}
