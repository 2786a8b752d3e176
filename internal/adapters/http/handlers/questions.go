package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/qa-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/qa-service/internal/domain"
)

// QuestionHandler serves /questions.
type QuestionHandler struct {
	queries QuestionQueries
	content ContentCreator
	votes   Voter
	remover ContentRemover
}

// QuestionHandlerConfig contains the question handler's services.
type QuestionHandlerConfig struct {
	Queries QuestionQueries
	Content ContentCreator
	Votes   Voter
	Remover ContentRemover
}

// NewQuestionHandler creates a question handler.
func NewQuestionHandler(cfg QuestionHandlerConfig) *QuestionHandler {
	return &QuestionHandler{
		queries: cfg.Queries,
		content: cfg.Content,
		votes:   cfg.Votes,
		remover: cfg.Remover,
	}
}

type createQuestionRequest struct {
	Title       string   `json:"title" validate:"required,notblank"`
	Description string   `json:"description" validate:"required,notblank"`
	Tags        []string `json:"tags" validate:"dive,tag"`
}

type createAnswerRequest struct {
	Content string `json:"content" validate:"required,notblank"`
}

type voteRequest struct {
	Type string `json:"type" validate:"required,oneof=upvote downvote"`
}

// List handles GET /questions.
func (h *QuestionHandler) List(c *gin.Context) {
	var query dto.QuestionListQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	page, err := h.queries.ListQuestions(c.Request.Context(), query.Filter())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuestionListResponse(page))
}

// Create handles POST /questions.
func (h *QuestionHandler) Create(c *gin.Context) {
	var req createQuestionRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	actor := middleware.GetActor(c)

	q, err := h.content.CreateQuestion(c.Request.Context(), actor, domain.QuestionDraft{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toQuestionResponse(q, actorAuthor(actor)))
}

// Get handles GET /questions/:id. Each call counts as a view.
func (h *QuestionHandler) Get(c *gin.Context) {
	detail, err := h.queries.GetQuestionDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuestionDetailResponse(detail))
}

// Vote handles POST /questions/:id/vote.
func (h *QuestionHandler) Vote(c *gin.Context) {
	var req voteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	result, err := h.votes.VoteQuestion(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Type)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toVoteResponse(result))
}

// Delete handles DELETE /questions/:id.
func (h *QuestionHandler) Delete(c *gin.Context) {
	if err := h.remover.DeleteQuestion(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateAnswer handles POST /questions/:id/answers.
func (h *QuestionHandler) CreateAnswer(c *gin.Context) {
	var req createAnswerRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	actor := middleware.GetActor(c)

	a, err := h.content.CreateAnswer(c.Request.Context(), actor, c.Param("id"), req.Content)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAnswerResponse(a, actorAuthor(actor), nil))
}

// RegisterRoutes registers the question routes. auth is applied to routes
// that need a signed-in caller.
func (h *QuestionHandler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	questions := rg.Group("/questions")
	questions.GET("", h.List)
	questions.GET("/:id", h.Get)
	questions.POST("", auth, h.Create)
	questions.POST("/:id/vote", auth, h.Vote)
	questions.DELETE("/:id", auth, h.Delete)
	questions.POST("/:id/answers", auth, h.CreateAnswer)
}
