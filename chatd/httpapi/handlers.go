package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/soramar/chatd/chatd/identity"
	"github.com/soramar/chatd/chatd/session"
	ports "github.com/soramar/chatd/chatd/session/ports"
	"github.com/soramar/chatd/chatd/store"
)

type handlers struct {
	orch     *session.Orchestrator
	ids      *identity.Service
	resolver ports.IdentityResolver
	logger   zerolog.Logger
}

// historyEntry is the external turn representation: a single-element parts
// list wrapping the turn text, matching the oracle's native shape.
type historyEntry struct {
	Role  string      `json:"role"`
	Parts []entryPart `json:"parts"`
}

type entryPart struct {
	Text string `json:"text"`
}

func (h *handlers) health(c *gin.Context) {
	c.String(http.StatusOK, "Server is running successfully!")
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handlers) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}

	if err := h.ids.Signup(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.logger.Error().Err(err).Msg("signup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error creating user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	token, username, err := h.ids.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "username": username})
}

func (h *handlers) chatHistory(c *gin.Context) {
	turns, err := h.orch.History(c.Request.Context(), bearerToken(c))
	if err != nil {
		h.writeError(c, err, "failed to fetch history")
		return
	}

	entries := make([]historyEntry, 0, len(turns))
	for _, turn := range turns {
		entries = append(entries, historyEntry{
			Role:  string(turn.Role),
			Parts: []entryPart{{Text: turn.Text}},
		})
	}

	c.JSON(http.StatusOK, entries)
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *handlers) chat(c *gin.Context) {
	// Credential rejection precedes body validation.
	token := bearerToken(c)
	if _, err := h.resolver.Resolve(token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	text, err := h.orch.Chat(c.Request.Context(), token, req.Message)
	if err != nil {
		h.writeError(c, err, "chat failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}

// writeError maps the session error taxonomy onto HTTP statuses. Oracle and
// persistence failures are both 500 to the caller but logged distinctly.
func (h *handlers) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ports.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ports.ErrOracle):
		h.logger.Error().Err(err).Msg("oracle error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	default:
		h.logger.Error().Err(err).Msg("persistence error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// bearerToken extracts the credential from the Authorization header. An
// absent or non-bearer header yields the empty token, which the resolver
// rejects as unauthenticated.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
