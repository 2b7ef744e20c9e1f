package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knowhub-ai/knowhub/internal/pkg/errcode"
	"github.com/knowhub-ai/knowhub/internal/pkg/response"
	"github.com/knowhub-ai/knowhub/internal/service"
)

type DocumentHandler struct {
	ingest *service.IngestService
}

func NewDocumentHandler(ingest *service.IngestService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	// shared=true publishes the document to every tenant
	tenantID := getTenantID(c)
	if c.PostForm("shared") == "true" {
		tenantID = ""
	}
	doc, err := h.ingest.Upload(c.Request.Context(), tenantID, file.Filename, opened, file.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

type processRequest struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

func (h *DocumentHandler) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.ingest.Process(c.Request.Context(), c.Param("id"), req.ChunkSize, req.Overlap); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "processing"})
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.ingest.Reprocess(c.Request.Context(), c.Param("id"), req.ChunkSize, req.Overlap); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "processing"})
}

func (h *DocumentHandler) Status(c *gin.Context) {
	doc, err := h.ingest.Status(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	chunks, err := h.ingest.Chunks(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunks": chunks})
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.ingest.List(c.Request.Context(), getTenantID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.ingest.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
