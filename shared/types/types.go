// Package types holds the request and response bodies shared by the HTTP
// service and its client.
package types

import (
	"fmt"
	"time"
)

type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type StoreContainerRequest struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// Container describes a stored container. Content is only filled in when
// the container itself was requested.
type Container struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Parent    string    `json:"parent,omitempty"`
	Files     int       `json:"files"`
	Binaries  int       `json:"binaries"`
	Trees     int       `json:"trees"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content,omitempty"`
}

type ApplyPatchRequest struct {
	Format string `json:"format"`
	Patch  string `json:"patch"`
}

type ApplyPatchResponse struct {
	Container Container `json:"container"`
	Created   []string  `json:"created"`
	Modified  []string  `json:"modified"`
	Deleted   []string  `json:"deleted"`
	Skipped   []string  `json:"skipped"`
}

type SanitizeRequest struct {
	Content string `json:"content"`
}

type SanitizeResponse struct {
	Content         string `json:"content"`
	Changed         bool   `json:"changed"`
	OpenedFences    int    `json:"opened_fences"`
	ClosedFences    int    `json:"closed_fences"`
	ClosedAtEOF     bool   `json:"closed_at_eof"`
	HeadersObserved int    `json:"headers_observed"`
}

// DiffRequest compares two containers of the same format. Context defaults
// to three lines.
type DiffRequest struct {
	Format      string `json:"format"`
	PatchFormat string `json:"patch_format"`
	Old         string `json:"old"`
	New         string `json:"new"`
	Context     *int   `json:"context,omitempty"`
}

type DiffResponse struct {
	Patch     string `json:"patch"`
	Files     int    `json:"files"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

type ConvertRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
}

type ConvertResponse struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

func (r StoreContainerRequest) Validate() error {
	if r.Content == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

func (r ApplyPatchRequest) Validate() error {
	if r.Patch == "" {
		return fmt.Errorf("patch is required")
	}
	return nil
}

func (r DiffRequest) Validate() error {
	if r.Context != nil && *r.Context < 0 {
		return fmt.Errorf("context must not be negative, got %d", *r.Context)
	}
	return nil
}
