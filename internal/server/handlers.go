package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/FileDrop/internal/files"
	"github.com/dharsanguruparan/FileDrop/internal/model"
	"github.com/dharsanguruparan/FileDrop/internal/naming"
	"github.com/dharsanguruparan/FileDrop/internal/storage"
)

// multipartOverhead leaves room for boundaries and part headers on top of the
// file size ceiling.
const multipartOverhead = 1 << 20

func (s *Server) handleList(c *gin.Context) {
	list, err := s.files.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleUpload(c *gin.Context) {
	if s.cfg.MaxFileSize > 0 {
		// http.MaxBytesReader wraps the Body to protect against oversized payloads.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxFileSize+multipartOverhead)
	}
	mr, err := multipartReader(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	file, err := s.files.UploadOne(c.Request.Context(), mr)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		File:    file,
	})
}

func (s *Server) handleUploadMultiple(c *gin.Context) {
	mr, err := multipartReader(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.files.UploadMany(c.Request.Context(), mr)
	if err != nil {
		if errors.Is(err, files.ErrNoFileProvided) {
			respondError(c, http.StatusBadRequest, "no files provided")
			return
		}
		s.fail(c, err)
		return
	}
	if len(res.Files) == 0 {
		s.log.Error("batch upload stored nothing", "failed", len(res.Failed), "error", res.FirstErr)
		c.JSON(statusFor(res.FirstErr), gin.H{
			"error":  files.Message(res.FirstErr),
			"failed": res.Failed,
		})
		return
	}
	msg := fmt.Sprintf("%d files uploaded successfully", len(res.Files))
	if len(res.Failed) > 0 {
		msg = fmt.Sprintf("%d files uploaded successfully, %d failed", len(res.Files), len(res.Failed))
	}
	c.JSON(http.StatusOK, model.BatchResponse{
		Success: true,
		Message: msg,
		Files:   res.Files,
		Failed:  res.Failed,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("name")
	// Reject traversal before anything touches the filesystem.
	if err := naming.Validate(name); err != nil {
		s.fail(c, err)
		return
	}
	f, info, err := s.files.Directory().Open(name)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	c.Header("Content-Type", files.ContentType(name))
	c.Header("X-Content-Type-Options", "nosniff")
	// ServeContent handles Range, If-Modified-Since and HEAD for us.
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}

func multipartReader(c *gin.Context) (*multipart.Reader, error) {
	// MultipartReader parses streaming uploads without loading entire files
	// into memory.
	mr, err := c.Request.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: expecting multipart form: %v", files.ErrBadRequest, err)
	}
	return mr, nil
}

// fail maps err onto a status and a client safe message. Server side
// faults are logged with their full cause.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	respondError(c, status, messageFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, files.ErrNoFileProvided),
		errors.Is(err, files.ErrBadRequest),
		errors.Is(err, files.ErrTooManyFiles),
		errors.Is(err, naming.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, files.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, naming.ErrInvalidName):
		return naming.ErrInvalidName.Error()
	case errors.Is(err, storage.ErrNotFound):
		return storage.ErrNotFound.Error()
	}
	return files.Message(err)
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{Error: msg})
}
