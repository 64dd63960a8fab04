package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"social-scheduler/domain/model"

	"github.com/gin-gonic/gin"
)

// BatchEvent is the SSE payload emitted after every scheduler tick.
type BatchEvent struct {
	Type           string    `json:"type"`
	ID             string    `json:"id"`
	ProcessedCount int       `json:"processedCount"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	Retrying       int       `json:"retrying"`
	Timestamp      time.Time `json:"timestamp"`
}

// PostStatusEvent tells an owner what happened to one of their posts.
type PostStatusEvent struct {
	Type           string `json:"type"`
	PostID         string `json:"postId"`
	Success        bool   `json:"success"`
	Retrying       bool   `json:"retrying"`
	PlatformPostID string `json:"platformPostId,omitempty"`
	Error          string `json:"error,omitempty"`
}

type event struct {
	name string
	data interface{}
}

// Hub maintains per-user subscribers listening for scheduler events.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan event]struct{}
}

func NewBatchHub() *Hub {
	return &Hub{users: make(map[string]map[chan event]struct{})}
}

// Serve registers an SSE stream for the authenticated user (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan event, 8)
	h.addSubscriber(userID, ch)
	defer h.removeSubscriber(userID, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt.data)
			_, _ = c.Writer.Write([]byte("event: " + evt.name + "\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.users {
		n += len(subs)
	}
	return n
}

func (h *Hub) addSubscriber(userID string, ch chan event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan event]struct{})
	}
	h.users[userID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(userID string, ch chan event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

// BroadcastBatch sends the batch summary to every subscriber and each post
// outcome to the subscribers of the post's owner. Slow readers drop events.
func (h *Hub) BroadcastBatch(result model.BatchResult) {
	summary := event{name: "batch_processed", data: BatchEvent{
		Type:           "batch_processed",
		ID:             result.ID,
		ProcessedCount: result.ProcessedCount,
		Succeeded:      result.Succeeded,
		Failed:         result.Failed,
		Retrying:       result.Retrying,
		Timestamp:      result.Timestamp,
	}}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subs := range h.users {
		for ch := range subs {
			send(ch, summary)
		}
	}
	for _, o := range result.Outcomes {
		subs := h.users[o.OwnerID]
		if len(subs) == 0 {
			continue
		}
		evt := event{name: "post_status", data: PostStatusEvent{
			Type:           "post_status",
			PostID:         o.PostID,
			Success:        o.Success,
			Retrying:       o.Retryable(),
			PlatformPostID: o.PlatformPostID,
			Error:          o.Error,
		}}
		for ch := range subs {
			send(ch, evt)
		}
	}
}

func send(ch chan event, evt event) {
	select { // non-blocking
	case ch <- evt:
	default:
	}
}
