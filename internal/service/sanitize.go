package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var userContentPolicy = bluemonday.UGCPolicy()

// sanitizeHTML strips unsafe markup from user supplied rich text.
func sanitizeHTML(input string) string {
	return strings.TrimSpace(userContentPolicy.Sanitize(input))
}
