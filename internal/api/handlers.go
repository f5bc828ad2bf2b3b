package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/store"
)

// multipartOverhead leaves room for boundaries and headers around the file
const multipartOverhead = 1 << 20

type analyzeRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type voteRequest struct {
	Type string `json:"type"`
}

// respondError maps the user-visible error kinds onto status codes
func (s *Server) respondError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"msg": "Image exceeds the upload limit"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": "Record not found"})
	case errors.Is(err, model.ErrInput):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
	case errors.Is(err, model.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Token is not valid"})
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if err := s.svc.Ping(c.Request.Context()); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().UTC(),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var body analyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Content is required"})
		return
	}
	t, err := model.ParseContentType(body.Type)
	if err != nil {
		s.respondError(c, err)
		return
	}

	rec, err := s.svc.Analyze(c.Request.Context(), model.AnalysisRequest{Content: body.Content, Type: t})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleAnalyzeImage(c *gin.Context) {
	limit := s.cfg.MaxImageBytes
	contentType := c.GetHeader("Content-Type")

	var up pipeline.ImageUpload
	if strings.HasPrefix(strings.ToLower(contentType), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
		fh, err := c.FormFile("image")
		if err != nil {
			if errors.As(err, new(*http.MaxBytesError)) {
				s.respondError(c, err)
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Image file is required in field \"image\""})
			return
		}
		if fh.Size > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"msg": "Image exceeds the upload limit"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			s.respondError(c, err)
			return
		}
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(f)
		if err != nil {
			s.respondError(c, err)
			return
		}
		up = pipeline.ImageUpload{Data: data, MimeType: fh.Header.Get("Content-Type"), Filename: fh.Filename}
	} else {
		if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Upload an image as multipart field \"image\" or an image/* body"})
			return
		}
		data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
		if err != nil {
			s.respondError(c, err)
			return
		}
		up = pipeline.ImageUpload{Data: data, MimeType: contentType}
	}

	rec, err := s.svc.AnalyzeImage(c.Request.Context(), up)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleList(c *gin.Context) {
	var filter store.Filter
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			s.respondError(c, err)
			return
		}
		filter.Status = status
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	records, err := s.svc.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleSetStatus(c *gin.Context) {
	var body statusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}
	status, err := model.ParseStatus(body.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}

	rec, err := s.svc.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleVote(c *gin.Context) {
	var body voteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}
	dir, err := model.ParseVoteDirection(body.Type)
	if err != nil {
		s.respondError(c, err)
		return
	}

	rec, err := s.svc.Vote(c.Request.Context(), c.Param("id"), dir)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
