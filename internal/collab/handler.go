package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/document"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/document/service"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/logger"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/metrics"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/middleware"
)

// Socket event names, shared with the frontend editor.
const (
	EventGetDocument  = "get-document"
	EventLoadDocument = "load-document"
	EventSendChange   = "send-change"
	EventReceive      = "receive-change"
	EventSaveDocument = "save-document"
	EventUnauthorized = "unauthorized-access"
)

// envelope is the JSON frame exchanged on the websocket. Delta and Content
// are opaque payloads owned by the client editor.
type envelope struct {
	Event      string              `json:"event"`
	DocumentID string              `json:"documentId,omitempty"`
	Title      string              `json:"title,omitempty"`
	Delta      json.RawMessage     `json:"delta,omitempty"`
	Content    json.RawMessage     `json:"content,omitempty"`
	Capability document.Capability `json:"capability,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// PresenceStore records which users are currently attached to a document.
// Best-effort: failures are logged, never surfaced to the collaboration
// flow.
type PresenceStore interface {
	Join(ctx context.Context, docID, userID string) error
	Leave(ctx context.Context, docID, userID string) error
}

// SnapshotArchiver receives a copy of saved content for out-of-band
// archiving (object storage).
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, docID string, content []byte) error
}

// Handler serves the websocket endpoint: it resolves access at join time,
// admits connections into rooms, relays deltas and coordinates saves.
type Handler struct {
	registry *Registry
	svc      *service.Service
	presence PresenceStore    // optional
	archiver SnapshotArchiver // optional
	upgrader websocket.Upgrader
	nextConn atomic.Uint64
}

func NewHandler(registry *Registry, svc *service.Service, presence PresenceStore, archiver SnapshotArchiver) *Handler {
	return &Handler{
		registry: registry,
		svc:      svc,
		presence: presence,
		archiver: archiver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// cross-origin policy is handled by the CORS layer
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Register mounts the websocket route. The token travels in the `token`
// query parameter (browser WebSocket API cannot set headers) or in the
// Authorization header.
func (h *Handler) Register(r gin.IRouter, ver middleware.Verifier) {
	r.GET("/ws", func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			if n, _ := fmt.Sscanf(c.GetHeader("Authorization"), "Bearer %s", &raw); n != 1 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
		}
		tok, err := ver.Verify(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		userID := middleware.Subject(claims)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}
		h.serve(c, userID)
	})
}

func (h *Handler) serve(c *gin.Context, userID string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("websocket upgrade: %v", err)
		return
	}
	connID := fmt.Sprintf("conn_%d", h.nextConn.Add(1))
	cl := newClient(conn, connID, userID)
	metrics.ConnectionsActive.Inc()

	go cl.writePump()
	cl.readPump(func(buf []byte) { h.onMessage(cl, buf) })

	h.disconnect(cl)
	close(cl.send)
	metrics.ConnectionsActive.Dec()
}

func (h *Handler) onMessage(cl *client, buf []byte) {
	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		logger.Debugf("bad frame from %s: %v", cl.connID, err)
		return
	}
	switch env.Event {
	case EventGetDocument:
		h.onGetDocument(cl, &env)
	case EventSendChange:
		h.onSendChange(cl, &env)
	case EventSaveDocument:
		h.onSaveDocument(cl, &env)
	default:
		logger.Debugf("unknown event %q from %s", env.Event, cl.connID)
	}
}

func (h *Handler) onGetDocument(cl *client, env *envelope) {
	if env.DocumentID == "" {
		return
	}
	if _, _, joined := h.registry.Lookup(cl.connID); joined {
		// one room per connection; clients reconnect to switch documents
		return
	}
	ctx, cancel := opContext()
	defer cancel()

	d, cap, err := h.svc.Open(ctx, env.DocumentID, cl.userID, env.Title)
	if errors.Is(err, service.ErrUnauthorized) {
		h.emit(cl, &envelope{Event: EventUnauthorized, Error: "Unauthorized access to the document"})
		return
	}
	if err != nil {
		logger.Errorf("open document %s: %v", env.DocumentID, err)
		h.emit(cl, &envelope{Event: EventUnauthorized, Error: "internal error"})
		return
	}

	h.registry.Join(d.ID, cl.connID, cl.userID, cap, cl)
	if h.presence != nil {
		if err := h.presence.Join(ctx, d.ID, cl.userID); err != nil {
			logger.Warnf("presence join %s/%s: %v", d.ID, cl.userID, err)
		}
	}
	h.emit(cl, &envelope{Event: EventLoadDocument, Content: d.Content, Title: d.Title, Capability: cap})
}

func (h *Handler) onSendChange(cl *client, env *envelope) {
	out, err := json.Marshal(&envelope{Event: EventReceive, Delta: env.Delta})
	if err != nil {
		return
	}
	h.registry.Relay(cl.connID, out)
}

func (h *Handler) onSaveDocument(cl *client, env *envelope) {
	docID, cap, ok := h.registry.Lookup(cl.connID)
	if !ok || !cap.CanEdit() {
		// view-only clients get no error back, same as dropped deltas
		return
	}
	ctx, cancel := opContext()
	defer cancel()
	if err := h.svc.SaveContent(ctx, docID, env.Content); err != nil {
		logger.Errorf("save document %s: %v", docID, err)
		return
	}
	metrics.DocumentSaves.Inc()
	if h.archiver != nil {
		if err := h.archiver.ArchiveSnapshot(ctx, docID, env.Content); err != nil {
			logger.Warnf("archive snapshot %s: %v", docID, err)
		}
	}
}

func (h *Handler) disconnect(cl *client) {
	docID, ok := h.registry.Leave(cl.connID)
	if !ok {
		return
	}
	// another tab of the same user may still be in the room
	if h.presence != nil && !h.registry.UserPresent(docID, cl.userID) {
		ctx, cancel := opContext()
		defer cancel()
		if err := h.presence.Leave(ctx, docID, cl.userID); err != nil {
			logger.Warnf("presence leave %s/%s: %v", docID, cl.userID, err)
		}
	}
}

func (h *Handler) emit(cl *client, env *envelope) {
	buf, err := json.Marshal(env)
	if err != nil {
		return
	}
	if !cl.Send(buf) {
		logger.Warnf("dropping %s event to %s: send buffer full", env.Event, cl.connID)
	}
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
