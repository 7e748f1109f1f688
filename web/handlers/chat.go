package handlers

import (
	"net/http"

	"datachat/chat"
	"datachat/web/format"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatHandler struct {
	controller *chat.Controller
	logger     *zap.Logger
}

type AskForm struct {
	Question string `json:"question" form:"question"`
}

// messageView is a Message plus the render-ready bits the front end needs:
// the summary as HTML and the effective column order.
type messageView struct {
	chat.Message
	Rendered      string   `json:"rendered,omitempty"`
	RenderColumns []string `json:"render_columns,omitempty"`
}

func NewChatHandler(controller *chat.Controller, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		controller: controller,
		logger:     logger,
	}
}

// View renders the active conversation. A `sid` query parameter switches to
// (and hydrates) that session first, so a shared or reloaded link lands on
// the same conversation.
func (h *ChatHandler) View(c *gin.Context) {
	snapshot := h.controller.Snapshot()
	if sid := c.Query("sid"); sid != "" && sid != snapshot.SessionID {
		if err := h.controller.ActivateSession(c.Request.Context(), sid); err != nil {
			// Transient notice; the previous view stays intact.
			h.logger.Warn("Failed to activate session from URL",
				zap.String("session_id", sid),
				zap.Error(err))
		}
		snapshot = h.controller.Snapshot()
	}
	c.JSON(http.StatusOK, renderView(snapshot))
}

// Ask submits a question. A second submission while one is pending is
// rejected, mirroring the disabled composer.
func (h *ChatHandler) Ask(c *gin.Context) {
	var form AskForm
	if err := c.ShouldBind(&form); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "Invalid request")
		return
	}
	if form.Question == "" {
		respondWithClientError(c, http.StatusBadRequest, "Question cannot be empty")
		return
	}

	msg, err := h.controller.Ask(c.Request.Context(), form.Question)
	if err != nil {
		respondWithError(c, statusFor(err), err, err.Error(), h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": toMessageView(msg),
		"view":    renderView(h.controller.Snapshot()),
	})
}

// Toggle flips the collapse state for one message.
func (h *ChatHandler) Toggle(c *gin.Context) {
	id := c.Param("id")
	if !h.controller.Toggle(id) {
		respondWithClientError(c, http.StatusNotFound, "No such message")
		return
	}
	c.Status(http.StatusNoContent)
}

func renderView(v chat.View) gin.H {
	messages := make([]messageView, 0, len(v.Messages))
	for _, m := range v.Messages {
		messages = append(messages, toMessageView(m))
	}
	return gin.H{
		"session_id":   v.SessionID,
		"session_name": v.SessionName,
		"dataset_id":   v.DatasetID,
		"state":        v.State,
		"busy":         v.Busy,
		"messages":     messages,
	}
}

func toMessageView(m chat.Message) messageView {
	mv := messageView{Message: m, RenderColumns: m.RenderColumns()}
	if m.Sender == chat.SenderBot {
		mv.Rendered = format.SummaryToHTML(m.Content)
	}
	return mv
}
