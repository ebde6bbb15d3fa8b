package models

import (
	"strings"
	"time"
)

// Schema is an uploaded SVG asset rendering the rig piping diagram.
// At most one schema row is active at a time.
type Schema struct {
	ID         int       `json:"id"`
	FileName   string    `json:"file_name"`
	SVGContent string    `json:"svg_content,omitempty"`
	Version    int       `json:"version"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the uploaded asset looks like an SVG document
func (s *Schema) Validate() bool {
	if s.FileName == "" || s.SVGContent == "" {
		return false
	}
	return strings.Contains(s.SVGContent, "<svg")
}
