package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RyanBlaney/speech-coach/internal/assessment"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
	"github.com/RyanBlaney/speech-coach/pkg/output"
)

var jsonFormatter = &output.JSONFormatter{}

// handleAssess accepts a multipart recording and returns the full assessment
func (s *Server) handleAssess(c *gin.Context) {
	if s.config.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)
	}

	req, err := s.parseAssessRequest(c)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	result := s.pipeline.Assess(c.Request.Context(), req)
	s.respond(c, http.StatusOK, result)
}

func (s *Server) parseAssessRequest(c *gin.Context) (*assessment.Request, error) {
	header, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.New("multipart field 'audio' is required")
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	attempt := 1
	if raw := strings.TrimSpace(c.PostForm("attempt_count")); raw != "" {
		attempt, err = strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("attempt_count must be an integer")
		}
	}

	format := strings.TrimSpace(c.PostForm("format"))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	}
	if format == "" {
		format = header.Header.Get("Content-Type")
	}

	return &assessment.Request{
		Audio:          data,
		Format:         format,
		ReferenceText:  c.PostForm("reference_text"),
		RecognizedText: c.PostForm("recognized_text"),
		AttemptCount:   attempt,
		SessionID:      strings.TrimSpace(c.PostForm("session_id")),
	}, nil
}

// handleSummary returns the session summary
func (s *Server) handleSummary(c *gin.Context) {
	id := c.Param("id")
	controller, ok := s.pipeline.Registry().Get(id)
	if !ok {
		s.sessionNotFound(c, id)
		return
	}
	s.respond(c, http.StatusOK, controller.Summary())
}

// handleReset clears the statistics of a session
func (s *Server) handleReset(c *gin.Context) {
	id := c.Param("id")
	if !s.pipeline.Registry().Reset(id) {
		s.sessionNotFound(c, id)
		return
	}
	s.logger.Info("Session reset", logging.Fields{"session_id": id})
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session_id": id})
}

// handleDelete forgets a session
func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if !s.pipeline.Registry().Delete(id) {
		s.sessionNotFound(c, id)
		return
	}
	s.logger.Info("Session deleted", logging.Fields{"session_id": id})
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session_id": id})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_status": string(s.pipeline.ModelStatus()),
		"sessions":     s.pipeline.Registry().Len(),
	})
}

func (s *Server) sessionNotFound(c *gin.Context, id string) {
	c.JSON(http.StatusNotFound, gin.H{
		"status":     "error",
		"error":      "session not found",
		"session_id": id,
	})
}

// respond encodes through the shared formatter so non-finite floats never break the body
func (s *Server) respond(c *gin.Context, status int, data any) {
	body, err := output.Render(jsonFormatter, data, false)
	if err != nil {
		s.logger.Error(err, "Failed to encode response")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to encode response",
		})
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}
