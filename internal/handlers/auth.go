package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/askly/chat/internal/auth"
	"github.com/askly/chat/internal/email"
	"github.com/askly/chat/internal/middleware"
	"github.com/askly/chat/internal/models"
	"github.com/askly/chat/internal/store"
)

type AuthHandler struct {
	Store     store.Store
	Auth      *auth.Auth
	Email     *email.Sender
	Logger    *zap.Logger
	BaseURL   string
	TicketTTL time.Duration
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeValid(w, r, &req) {
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &models.User{
		Username:          req.Username,
		Email:             req.Email,
		Password:          string(hashedPassword),
		VerificationToken: uuid.NewString(),
	}

	if err := h.Store.CreateUser(user); err != nil {
		writeError(w, http.StatusConflict, "username or email already exists")
		return
	}

	if h.Email != nil {
		link := fmt.Sprintf("%s/verify?token=%s", h.BaseURL, user.VerificationToken)
		go func() {
			if err := h.Email.SendVerification(user.Email, user.Username, link); err != nil {
				h.Logger.Warn("send verification email", zap.Error(err))
			}
		}()
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if !decodeValid(w, r, &creds) {
		return
	}

	user, err := h.Store.GetUserByUsername(creds.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    h.Auth.SignCookie(strconv.Itoa(user.ID)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if err := h.Store.VerifyUser(token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invalid token")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusOK, []models.User{})
		return
	}

	users, err := h.Store.SearchUsers(query)
	if err != nil {
		h.Logger.Error("search users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// SocketTicket exchanges the session cookie for a short-lived websocket
// ticket.
func (h *AuthHandler) SocketTicket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	ticket, err := h.Auth.IssueTicket(userID, h.TicketTTL)
	if err != nil {
		h.Logger.Error("issue ticket", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ticket": ticket})
}
