package app

import (
	"context"
	"fmt"
	"log/slog"

	reqctx "github.com/jsamuelsen/qa-service/internal/app/context"
	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// DefaultSearchLimit bounds the ids taken from the search index for one listing.
const DefaultSearchLimit = 1000

// QuestionSummary is a listing row.
type QuestionSummary struct {
	Question *domain.Question
	Author   domain.AuthorSummary
}

// QuestionPage is one page of a question listing.
type QuestionPage struct {
	Items []QuestionSummary
	Page  domain.PageInfo
}

// CommentView is a comment with its author.
type CommentView struct {
	Comment *domain.Comment
	Author  domain.AuthorSummary
}

// AnswerView is an answer with its author and active comments.
type AnswerView struct {
	Answer   *domain.Answer
	Author   domain.AuthorSummary
	Comments []CommentView
}

// QuestionDetail is the full view of one question.
type QuestionDetail struct {
	Question *domain.Question
	Author   domain.AuthorSummary
	Answers  []AnswerView
}

// QueryService serves question listings and detail views.
type QueryService struct {
	questions ports.QuestionRepository
	answers   ports.AnswerRepository
	comments  ports.CommentRepository
	users     ports.UserRepository
	searcher  ports.QuestionSearcher

	defaultPageSize int
	maxPageSize     int
	searchLimit     int

	logger *slog.Logger
}

// QueryServiceConfig contains the query service's dependencies and listing bounds.
type QueryServiceConfig struct {
	Questions ports.QuestionRepository
	Answers   ports.AnswerRepository
	Comments  ports.CommentRepository
	Users     ports.UserRepository

	// Searcher resolves text search when set. Store search is the fallback.
	Searcher ports.QuestionSearcher

	DefaultPageSize int
	MaxPageSize     int
	SearchLimit     int

	Logger *slog.Logger
}

// NewQueryService creates a query service. It panics on missing repositories.
func NewQueryService(cfg QueryServiceConfig) *QueryService {
	if cfg.Questions == nil || cfg.Answers == nil || cfg.Comments == nil || cfg.Users == nil {
		panic("app.NewQueryService: Questions, Answers, Comments and Users are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}

	return &QueryService{
		questions:       cfg.Questions,
		answers:         cfg.Answers,
		comments:        cfg.Comments,
		users:           cfg.Users,
		searcher:        cfg.Searcher,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		searchLimit:     searchLimit,
		logger:          logger.With(slog.String("component", "app.QueryService")),
	}
}

// ListQuestions returns one page of active questions matching the filter.
func (s *QueryService) ListQuestions(ctx context.Context, filter domain.QuestionFilter) (*QuestionPage, error) {
	f, err := filter.Normalize(s.defaultPageSize, s.maxPageSize)
	if err != nil {
		return nil, err
	}

	if s.searcher != nil && f.Search != "" {
		f = s.resolveSearch(ctx, f)
	}

	qs, total, err := s.questions.ListQuestions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}

	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.AuthorID
	}

	authors := s.authors(ctx, ids)

	items := make([]QuestionSummary, len(qs))
	for i, q := range qs {
		items[i] = QuestionSummary{Question: q, Author: authors[q.AuthorID]}
	}

	return &QuestionPage{
		Items: items,
		Page:  domain.NewPageInfo(f.Page, f.PageSize, total),
	}, nil
}

// resolveSearch narrows the listing to the index's matching ids. The text
// search stays on the filter so the store rechecks every candidate. When the
// index fails, or returns a full batch that may be truncated, the filter is
// returned unchanged and the store searches on its own.
func (s *QueryService) resolveSearch(ctx context.Context, f domain.QuestionFilter) domain.QuestionFilter {
	ids, err := s.searcher.SearchQuestionIDs(ctx, f.Search, s.searchLimit)
	if err != nil {
		logging.FromContextOr(ctx, s.logger).WarnContext(ctx, "search index unavailable, falling back to store search",
			slog.Any("error", err),
		)

		return f
	}

	if len(ids) >= s.searchLimit {
		logging.FromContextOr(ctx, s.logger).DebugContext(ctx, "search index hit the batch limit, using store search",
			slog.Int("limit", s.searchLimit),
		)

		return f
	}

	if ids == nil {
		ids = []string{}
	}

	f.IDs = ids

	return f
}

// GetQuestionDetail counts a view and returns the question with its active
// answers, pinned first then by score, each with its active comments.
func (s *QueryService) GetQuestionDetail(ctx context.Context, id string) (*QuestionDetail, error) {
	_, err := s.questions.IncrementViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("counting view: %w", err)
	}

	q, answers, err := Parallel2(ctx,
		func(ctx context.Context) (*domain.Question, error) { return s.questions.GetQuestion(ctx, id) },
		func(ctx context.Context) ([]*domain.Answer, error) { return s.answers.ListAnswers(ctx, id) },
	)
	if err != nil {
		return nil, fmt.Errorf("loading question: %w", err)
	}

	err = q.EnsureActive()
	if err != nil {
		return nil, err
	}

	answerIDs := make([]string, len(answers))
	for i, a := range answers {
		answerIDs[i] = a.ID
	}

	comments := map[string][]*domain.Comment{}
	if len(answerIDs) > 0 {
		comments, err = s.comments.ListComments(ctx, answerIDs)
		if err != nil {
			return nil, fmt.Errorf("loading comments: %w", err)
		}
	}

	domain.SortForDisplay(answers)

	authorIDs := []string{q.AuthorID}
	for _, a := range answers {
		authorIDs = append(authorIDs, a.AuthorID)
		for _, c := range comments[a.ID] {
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}

	authors := s.authors(ctx, authorIDs)

	views := make([]AnswerView, len(answers))
	for i, a := range answers {
		cs := comments[a.ID]
		cviews := make([]CommentView, len(cs))

		for j, c := range cs {
			cviews[j] = CommentView{Comment: c, Author: authors[c.AuthorID]}
		}

		views[i] = AnswerView{Answer: a, Author: authors[a.AuthorID], Comments: cviews}
	}

	return &QuestionDetail{Question: q, Author: authors[q.AuthorID], Answers: views}, nil
}

func authorKey(id string) string {
	return "author:" + id
}

// Author returns the display summary of one user, or an unknown-author
// placeholder when the user cannot be loaded.
func (s *QueryService) Author(ctx context.Context, userID string) domain.AuthorSummary {
	return s.authors(ctx, []string{userID})[userID]
}

// authors resolves display summaries, memoized in the request context. Ids
// not yet cached are loaded in one batch; anything that cannot be resolved
// gets an UnknownAuthor summary.
func (s *QueryService) authors(ctx context.Context, ids []string) map[string]domain.AuthorSummary {
	ctx, rc := reqctx.Ensure(ctx)
	logger := logging.FromContextOr(ctx, s.logger)

	missing := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}

		if _, ok := rc.Lookup(authorKey(id)); !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		users, err := s.users.GetUsers(ctx, missing)
		if err != nil {
			logger.WarnContext(ctx, "batch author lookup failed", slog.Any("error", err))
		} else {
			for _, id := range missing {
				if u, ok := users[id]; ok {
					rc.Prime(authorKey(id), u.Summary())
				} else {
					rc.Prime(authorKey(id), domain.UnknownAuthor(id))
				}
			}
		}
	}

	out := make(map[string]domain.AuthorSummary, len(seen))
	for id := range seen {
		summary, err := reqctx.Fetch(rc, authorKey(id), func(ctx context.Context) (domain.AuthorSummary, error) {
			u, err := s.users.GetUser(ctx, id)
			if err != nil {
				return domain.AuthorSummary{}, err
			}

			return u.Summary(), nil
		})
		if err != nil {
			logger.DebugContext(ctx, "author lookup failed", slog.String("user_id", id), slog.Any("error", err))

			summary = domain.UnknownAuthor(id)
		}

		out[id] = summary
	}

	return out
}
