// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"
)

// PublicPrefix is the URL prefix under which stored files are downloadable.
const PublicPrefix = "/uploads/"

// StoredFile describes one file in the upload directory. Upload responses and
// listing entries share this shape. Struct tags such as `json:"name"` instruct
// the encoding/json package to use custom field names.
type StoredFile struct {
	Name          string    `json:"name"`
	OriginalName  string    `json:"originalName"`
	Path          string    `json:"path"`
	Size          int64     `json:"size"`
	FormattedSize string    `json:"formattedSize"`
	Type          string    `json:"type"`
	UploadDate    time.Time `json:"uploadDate"`
	FormattedDate string    `json:"formattedDate"`
}

// UploadResponse is returned by the single file upload route.
type UploadResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	File    *StoredFile `json:"file"`
}

// BatchResponse is returned by the multi file upload route. Failed lists the
// parts that could not be stored; siblings are kept regardless.
type BatchResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Files   []StoredFile `json:"files"`
	Failed  []FailedFile `json:"failed,omitempty"`
}

// FailedFile reports a single part of a batch that was not stored.
type FailedFile struct {
	OriginalName string `json:"originalName"`
	Error        string `json:"error"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
