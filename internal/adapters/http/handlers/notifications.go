package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/qa-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/qa-service/internal/adapters/ws"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
)

// Streamer pushes a user's events over an upgraded connection.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string, opts ws.ServeOptions)
}

// NotificationHandler serves /notifications.
type NotificationHandler struct {
	notifications  Notifications
	stream         Streamer
	originPatterns []string
}

// NewNotificationHandler creates a notification handler. A nil stream
// disables the WebSocket endpoint.
func NewNotificationHandler(notifications Notifications, stream Streamer, originPatterns []string) *NotificationHandler {
	return &NotificationHandler{
		notifications:  notifications,
		stream:         stream,
		originPatterns: originPatterns,
	}
}

type markAllReadResponse struct {
	Updated int `json:"updated"`
}

// List handles GET /notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	var query dto.NotificationListQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	list, err := h.notifications.List(c.Request.Context(), middleware.GetActor(c), query.Unread, query.Limit)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	items := make([]NotificationResponse, len(list.Items))
	for i, n := range list.Items {
		items[i] = toNotificationResponse(n)
	}

	c.JSON(http.StatusOK, NotificationListResponse{Notifications: items, UnreadCount: list.Unread})
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkAllRead handles PATCH /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, markAllReadResponse{Updated: n})
}

// Stream handles GET /notifications/stream by upgrading to a WebSocket.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.stream == nil {
		dto.RespondWithErrorCode(c, dto.ErrorCodeUnavailable, "notification stream is unavailable")
		return
	}

	actor := middleware.GetActor(c)
	logger := logging.FromContext(c.Request.Context())

	logger.Debug("notification stream opened", slog.String("user_id", actor.UserID))

	h.stream.Serve(c.Writer, c.Request, actor.UserID, ws.ServeOptions{
		OriginPatterns: h.originPatterns,
		Logger:         logger,
	})
}

// RegisterRoutes registers the request/response notification routes.
// The stream route is registered separately so it can sit outside the
// request timeout.
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	notifications := rg.Group("/notifications", auth)
	notifications.GET("", h.List)
	notifications.PATCH("/read-all", h.MarkAllRead)
	notifications.PATCH("/:id/read", h.MarkRead)
}

// RegisterStreamRoute registers GET /notifications/stream.
func (h *NotificationHandler) RegisterStreamRoute(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("/notifications/stream", auth, h.Stream)
}
