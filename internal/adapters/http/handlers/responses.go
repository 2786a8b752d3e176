package handlers

import (
	"time"

	"github.com/jsamuelsen/qa-service/internal/app"
	"github.com/jsamuelsen/qa-service/internal/domain"
)

// AuthorResponse is the display form of a content author.
type AuthorResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Avatar     string `json:"avatar,omitempty"`
	Reputation int    `json:"reputation"`
}

// QuestionResponse is the HTTP representation of a question.
type QuestionResponse struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Tags             []string       `json:"tags"`
	Author           AuthorResponse `json:"author"`
	Views            int64          `json:"views"`
	Upvotes          int            `json:"upvotes"`
	Downvotes        int            `json:"downvotes"`
	Score            int            `json:"score"`
	AnswerCount      int            `json:"answerCount"`
	AcceptedAnswerID string         `json:"acceptedAnswerId,omitempty"`
	PinnedAnswerID   string         `json:"pinnedAnswerId,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// AnswerResponse is the HTTP representation of an answer.
type AnswerResponse struct {
	ID         string            `json:"id"`
	QuestionID string            `json:"questionId"`
	Content    string            `json:"content"`
	Author     AuthorResponse    `json:"author"`
	Upvotes    int               `json:"upvotes"`
	Downvotes  int               `json:"downvotes"`
	Score      int               `json:"score"`
	IsAccepted bool              `json:"isAccepted"`
	IsPinned   bool              `json:"isPinned"`
	Comments   []CommentResponse `json:"comments"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// CommentResponse is the HTTP representation of a comment.
type CommentResponse struct {
	ID        string         `json:"id"`
	AnswerID  string         `json:"answerId"`
	Content   string         `json:"content"`
	Author    AuthorResponse `json:"author"`
	CreatedAt time.Time      `json:"createdAt"`
}

// PaginationResponse describes an offset-paginated listing.
type PaginationResponse struct {
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// QuestionListResponse is one page of questions.
type QuestionListResponse struct {
	Questions  []QuestionResponse `json:"questions"`
	Pagination PaginationResponse `json:"pagination"`
}

// QuestionDetailResponse is a question with its answers, pinned first.
type QuestionDetailResponse struct {
	Question QuestionResponse `json:"question"`
	Answers  []AnswerResponse `json:"answers"`
}

// VoteResponse is a target's tally after a vote.
type VoteResponse struct {
	ID        string `json:"id"`
	Target    string `json:"target"`
	Vote      string `json:"vote"`
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
	Score     int    `json:"score"`
}

// NotificationResponse is the HTTP representation of a notification.
type NotificationResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	QuestionID string    `json:"questionId,omitempty"`
	AnswerID   string    `json:"answerId,omitempty"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NotificationListResponse is the caller's notifications with the unread count.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unreadCount"`
}

// UserResponse is a public profile.
type UserResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Avatar         string    `json:"avatar,omitempty"`
	Role           string    `json:"role"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	Website        string    `json:"website"`
	QuestionsAsked int       `json:"questionsAsked"`
	AnswersGiven   int       `json:"answersGiven"`
	Reputation     int       `json:"reputation"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toAuthorResponse(a domain.AuthorSummary) AuthorResponse {
	return AuthorResponse{
		ID:         a.ID,
		Username:   a.Username,
		Avatar:     a.Avatar,
		Reputation: a.Reputation,
	}
}

// actorAuthor is the author of content the actor just created.
func actorAuthor(actor domain.Actor) domain.AuthorSummary {
	return domain.AuthorSummary{ID: actor.UserID, Username: actor.DisplayName()}
}

func toQuestionResponse(q *domain.Question, author domain.AuthorSummary) QuestionResponse {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}

	return QuestionResponse{
		ID:               q.ID,
		Title:            q.Title,
		Description:      q.Description,
		Tags:             tags,
		Author:           toAuthorResponse(author),
		Views:            q.Views,
		Upvotes:          q.Tally.Up,
		Downvotes:        q.Tally.Down,
		Score:            q.Score(),
		AnswerCount:      q.AnswerCount(),
		AcceptedAnswerID: q.AcceptedAnswerID,
		PinnedAnswerID:   q.PinnedAnswerID,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

func toAnswerResponse(a *domain.Answer, author domain.AuthorSummary, comments []CommentResponse) AnswerResponse {
	if comments == nil {
		comments = []CommentResponse{}
	}

	return AnswerResponse{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Content:    a.Content,
		Author:     toAuthorResponse(author),
		Upvotes:    a.Tally.Up,
		Downvotes:  a.Tally.Down,
		Score:      a.Score(),
		IsAccepted: a.IsAccepted,
		IsPinned:   a.IsPinned,
		Comments:   comments,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func toCommentResponse(c *domain.Comment, author domain.AuthorSummary) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		AnswerID:  c.AnswerID,
		Content:   c.Content,
		Author:    toAuthorResponse(author),
		CreatedAt: c.CreatedAt,
	}
}

func toPaginationResponse(p domain.PageInfo) PaginationResponse {
	return PaginationResponse{
		CurrentPage: p.CurrentPage,
		PageSize:    p.PageSize,
		TotalPages:  p.TotalPages,
		TotalCount:  p.TotalCount,
		HasNext:     p.HasNext,
		HasPrev:     p.HasPrev,
	}
}

func toQuestionListResponse(page *app.QuestionPage) QuestionListResponse {
	questions := make([]QuestionResponse, len(page.Items))
	for i, item := range page.Items {
		questions[i] = toQuestionResponse(item.Question, item.Author)
	}

	return QuestionListResponse{
		Questions:  questions,
		Pagination: toPaginationResponse(page.Page),
	}
}

func toQuestionDetailResponse(d *app.QuestionDetail) QuestionDetailResponse {
	answers := make([]AnswerResponse, len(d.Answers))

	for i, av := range d.Answers {
		comments := make([]CommentResponse, len(av.Comments))
		for j, cv := range av.Comments {
			comments[j] = toCommentResponse(cv.Comment, cv.Author)
		}

		answers[i] = toAnswerResponse(av.Answer, av.Author, comments)
	}

	return QuestionDetailResponse{
		Question: toQuestionResponse(d.Question, d.Author),
		Answers:  answers,
	}
}

func toVoteResponse(r *app.VoteResult) VoteResponse {
	return VoteResponse{
		ID:        r.TargetID,
		Target:    string(r.Kind),
		Vote:      string(r.Vote),
		Upvotes:   r.Up,
		Downvotes: r.Down,
		Score:     r.Score,
	}
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		SenderID:   n.SenderID,
		Type:       string(n.Type),
		Message:    n.Message,
		QuestionID: n.QuestionID,
		AnswerID:   n.AnswerID,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Avatar:         u.Avatar,
		Role:           string(u.Role),
		Bio:            u.Bio,
		Location:       u.Location,
		Website:        u.Website,
		QuestionsAsked: u.QuestionsAsked,
		AnswersGiven:   u.AnswersGiven,
		Reputation:     u.Reputation,
		CreatedAt:      u.CreatedAt,
	}
}
