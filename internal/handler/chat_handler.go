package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knowhub-ai/knowhub/internal/model"
	"github.com/knowhub-ai/knowhub/internal/pkg/errcode"
	"github.com/knowhub-ai/knowhub/internal/pkg/response"
	"github.com/knowhub-ai/knowhub/internal/service"
)

type ChatHandler struct {
	answers *service.AnswerService
}

func NewChatHandler(answers *service.AnswerService) *ChatHandler {
	return &ChatHandler{answers: answers}
}

type askRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"`
}

type sourceView struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

type askResponse struct {
	Answer   string       `json:"answer"`
	Sources  []sourceView `json:"sources,omitempty"`
	Degraded bool         `json:"degraded,omitempty"`
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	res, err := h.answers.Ask(c.Request.Context(), getTenantID(c), req.Question, req.Model)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, askResponse{
		Answer:   res.Answer,
		Sources:  sourceViews(res.Sources),
		Degraded: res.Degraded,
	})
}

// AskStream delivers the answer as server-sent events: one "delta" event per
// text fragment, then a final "done" event carrying the sources.
func (h *ChatHandler) AskStream(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher := c.Writer
	res, err := h.answers.AskStream(c.Request.Context(), getTenantID(c), req.Question, req.Model, func(delta string) error {
		c.SSEvent("delta", delta)
		flusher.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		c.SSEvent("error", err.Error())
		flusher.Flush()
		return
	}
	c.SSEvent("done", askResponse{
		Answer:   res.Answer,
		Sources:  sourceViews(res.Sources),
		Degraded: res.Degraded,
	})
	flusher.Flush()
}

func sourceViews(chunks []model.ScoredChunk) []sourceView {
	if len(chunks) == 0 {
		return nil
	}
	views := make([]sourceView, 0, len(chunks))
	for _, sc := range chunks {
		views = append(views, sourceView{
			DocumentID: sc.DocumentID,
			ChunkIndex: sc.ChunkIndex,
			Text:       sc.Text,
			Distance:   sc.Distance,
		})
	}
	return views
}
