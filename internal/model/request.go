package model

import (
	"fmt"
	"strings"
)

// ContentType classifies submitted content
type ContentType string

const (
	TypeText     ContentType = "text"
	TypeURL      ContentType = "url"
	TypeHeadline ContentType = "headline"
	TypeImage    ContentType = "image"
)

// ParseContentType validates a declared type. Empty means text.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeText:
		return TypeText, nil
	case TypeURL:
		return TypeURL, nil
	case TypeHeadline:
		return TypeHeadline, nil
	case TypeImage:
		return TypeImage, nil
	default:
		return "", fmt.Errorf("%w: unknown content type %q", ErrInput, s)
	}
}

// AnalysisRequest is one inbound analysis call
type AnalysisRequest struct {
	Content string      `json:"content"`
	Type    ContentType `json:"type"`
}

// Validate rejects requests that must not enter the pipeline
func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInput)
	}
	if r.Type == TypeImage {
		return fmt.Errorf("%w: image content must be uploaded to /analyze-image", ErrInput)
	}
	return nil
}

// LooksLikeURL reports whether s starts with an http(s) scheme
func LooksLikeURL(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// IsURLInput reports whether content should be treated as a link
func IsURLInput(content string, t ContentType) bool {
	return t == TypeURL || LooksLikeURL(content)
}
