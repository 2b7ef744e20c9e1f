package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/knowhub-ai/knowhub/internal/model"
	"github.com/knowhub-ai/knowhub/internal/pkg/errcode"
	"github.com/knowhub-ai/knowhub/internal/pkg/response"
	"github.com/knowhub-ai/knowhub/internal/service"
)

type FeedbackHandler struct {
	feedback *service.FeedbackService
}

func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type feedbackRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Verdict  string `json:"verdict"`
}

func (h *FeedbackHandler) Create(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	record, err := h.feedback.Record(c.Request.Context(), getUserID(c), getTenantID(c), req.Question, req.Answer, model.Verdict(req.Verdict))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, record)
}

func (h *FeedbackHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	records, err := h.feedback.List(c.Request.Context(), getTenantID(c), model.Verdict(c.Query("verdict")), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"feedback": records})
}

func (h *FeedbackHandler) Stats(c *gin.Context) {
	stats, err := h.feedback.Stats(c.Request.Context(), getTenantID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
