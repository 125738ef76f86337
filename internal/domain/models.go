package domain

import "time"

// RequestSpec is one planned call through the HTTP facade.
type RequestSpec struct {
	ID      string
	Method  string
	URL     string
	Headers map[string]string
	// Params holds text values; Files maps param names to local paths uploaded as
	// multipart file parts.
	Params      map[string]any
	Files       map[string]string
	Once        bool
	ExtractMeta bool
	// Delay is the pause after this request before the next one.
	Delay time.Duration
}

// PageMeta is HTML metadata pulled from a response body.
type PageMeta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Outcome records how a planned request ended.
type Outcome struct {
	RequestID   string    `json:"request_id"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code,omitempty"`
	Succeeded   bool      `json:"succeeded"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	BodyBytes   int       `json:"body_bytes"`
	Meta        *PageMeta `json:"meta,omitempty"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	CompletedAt time.Time `json:"completed_at"`
}
