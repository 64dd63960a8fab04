package social

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"social-scheduler/domain/model"
)

// classifyTransport treats every network-level failure, including timeouts and
// cancelled contexts, as retryable.
func classifyTransport(err error) error {
	return fmt.Errorf("%w: %v", model.ErrTransientPublish, err)
}

// classifyStatus maps a non-success provider status to a transient or terminal error.
func classifyStatus(status int, body []byte) error {
	detail := providerMessage(body)
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited by provider%s", model.ErrTransientPublish, detail)
	case status == http.StatusRequestTimeout || status >= 500:
		return fmt.Errorf("%w: provider returned %d%s", model.ErrTransientPublish, status, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: access token rejected (%d)%s", model.ErrTerminalPublish, status, detail)
	default:
		return fmt.Errorf("%w: content rejected (%d)%s", model.ErrTerminalPublish, status, detail)
	}
}

func checkContent(content string, limit int) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is empty", model.ErrTerminalPublish)
	}
	if n := utf8.RuneCountInString(content); limit > 0 && n > limit {
		return fmt.Errorf("%w: content has %d characters, limit is %d", model.ErrTerminalPublish, n, limit)
	}
	return nil
}

// providerMessage pulls a short human readable reason out of a provider error body.
func providerMessage(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, s := range []string{parsed.Detail, parsed.Message, parsed.Title} {
			if s != "" {
				return ": " + truncate(s, 200)
			}
		}
	}
	return ""
}

// truncate shortens s to at most n characters without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
