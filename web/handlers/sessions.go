package handlers

import (
	"net/http"

	"datachat/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	controller *chat.Controller
	logger     *zap.Logger
}

type DatasetForm struct {
	DatasetID string `json:"dataset_id" form:"dataset_id"`
}

func NewSessionHandler(controller *chat.Controller, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		logger:     logger,
	}
}

// List returns the session roster for the active (client, dataset) pair.
// The sidebar refetches this independently whenever the roster changes.
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.controller.Sessions(c.Request.Context())
	if err != nil {
		respondWithError(c, statusFor(err), err, "Could not load sessions", h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// Create pre-creates an empty session and makes it active.
func (h *SessionHandler) Create(c *gin.Context) {
	sessionID, err := h.controller.CreateSession(c.Request.Context())
	if err != nil {
		respondWithError(c, statusFor(err), err, "Could not create session", h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID})
}

// Activate switches to the given session and hydrates it. On failure the
// previous conversation view is left untouched.
func (h *SessionHandler) Activate(c *gin.Context) {
	sessionID := c.Param("sid")
	if err := h.controller.ActivateSession(c.Request.Context(), sessionID); err != nil {
		respondWithError(c, statusFor(err), err, "Could not load session", h.logger,
			zap.String("session_id", sessionID))
		return
	}
	c.JSON(http.StatusOK, renderView(h.controller.Snapshot()))
}

// SetDataset records the active dataset handle. Dataset issuance itself
// happens elsewhere; this only switches which dataset conversations bind to.
func (h *SessionHandler) SetDataset(c *gin.Context) {
	var form DatasetForm
	if err := c.ShouldBind(&form); err != nil || form.DatasetID == "" {
		respondWithClientError(c, http.StatusBadRequest, "Dataset id is required")
		return
	}
	h.controller.SetDataset(form.DatasetID)
	c.JSON(http.StatusOK, renderView(h.controller.Snapshot()))
}
