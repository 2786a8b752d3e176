package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/qa-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/qa-service/internal/domain"
)

// AnswerHandler serves /answers and /comments.
type AnswerHandler struct {
	content ContentCreator
	votes   Voter
	marker  AnswerMarker
	remover ContentRemover
	authors AuthorLookup
}

// AnswerHandlerConfig contains the answer handler's services.
type AnswerHandlerConfig struct {
	Content ContentCreator
	Votes   Voter
	Marker  AnswerMarker
	Remover ContentRemover

	// Authors fills the author of accepted and pinned answers. Optional.
	Authors AuthorLookup
}

// NewAnswerHandler creates an answer handler.
func NewAnswerHandler(cfg AnswerHandlerConfig) *AnswerHandler {
	return &AnswerHandler{
		content: cfg.Content,
		votes:   cfg.Votes,
		marker:  cfg.Marker,
		remover: cfg.Remover,
		authors: cfg.Authors,
	}
}

type createCommentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=500"`
}

// Vote handles POST /answers/:id/vote.
func (h *AnswerHandler) Vote(c *gin.Context) {
	var req voteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	result, err := h.votes.VoteAnswer(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Type)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toVoteResponse(result))
}

// Accept handles POST /answers/:id/accept.
func (h *AnswerHandler) Accept(c *gin.Context) {
	a, err := h.marker.Accept(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAnswerResponse(a, h.author(c, a.AuthorID), nil))
}

// Pin handles POST /answers/:id/pin.
func (h *AnswerHandler) Pin(c *gin.Context) {
	a, err := h.marker.Pin(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAnswerResponse(a, h.author(c, a.AuthorID), nil))
}

func (h *AnswerHandler) author(c *gin.Context, userID string) domain.AuthorSummary {
	if h.authors == nil {
		return domain.UnknownAuthor(userID)
	}

	return h.authors.Author(c.Request.Context(), userID)
}

// Delete handles DELETE /answers/:id.
func (h *AnswerHandler) Delete(c *gin.Context) {
	if err := h.remover.DeleteAnswer(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateComment handles POST /answers/:id/comments.
func (h *AnswerHandler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	actor := middleware.GetActor(c)

	comment, err := h.content.CreateComment(c.Request.Context(), actor, c.Param("id"), req.Content)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCommentResponse(comment, actorAuthor(actor)))
}

// DeleteComment handles DELETE /comments/:id.
func (h *AnswerHandler) DeleteComment(c *gin.Context) {
	if err := h.remover.DeleteComment(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the answer and comment routes. All of them
// require a signed-in caller.
func (h *AnswerHandler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	answers := rg.Group("/answers", auth)
	answers.POST("/:id/vote", h.Vote)
	answers.POST("/:id/accept", h.Accept)
	answers.POST("/:id/pin", h.Pin)
	answers.DELETE("/:id", h.Delete)
	answers.POST("/:id/comments", h.CreateComment)

	rg.DELETE("/comments/:id", auth, h.DeleteComment)
}
