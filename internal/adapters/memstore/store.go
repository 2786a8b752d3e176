// Package memstore is an in-process implementation of ports.ContentStore.
// It backs the "memory" storage driver and the application tests. Every
// method copies records in and out, so callers never share memory with the store.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// Store holds all Q&A records behind a single lock.
type Store struct {
	mu sync.RWMutex

	questions     map[string]*domain.Question
	answers       map[string]*domain.Answer
	comments      map[string]*domain.Comment
	notifications map[string]*domain.Notification
	users         map[string]*domain.User
	votes         map[domain.VoteTarget]domain.VoteLedger

	// order records insertion sequence per kind and id, so records created
	// within the same clock tick keep their creation order.
	seq   int64
	order map[string]int64

	now func() time.Time
}

var _ ports.ContentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		questions:     make(map[string]*domain.Question),
		answers:       make(map[string]*domain.Answer),
		comments:      make(map[string]*domain.Comment),
		notifications: make(map[string]*domain.Notification),
		users:         make(map[string]*domain.User),
		votes:         make(map[domain.VoteTarget]domain.VoteLedger),
		order:         make(map[string]int64),
		now:           time.Now,
	}
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memstore" }

// Check implements ports.HealthChecker. The in-process store is always reachable.
func (s *Store) Check(context.Context) error { return nil }

// PutUser seeds or replaces a user record. Registration is owned elsewhere,
// so this is the only way to create a fully populated profile in memory.
func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *u
	s.users[u.ID] = &cp
}

// --- questions ---

// CreateQuestion implements ports.QuestionRepository.
func (s *Store) CreateQuestion(_ context.Context, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.questions[q.ID]; exists {
		return domain.NewConflictError("question", "id already exists")
	}

	s.questions[q.ID] = cloneQuestion(q)
	s.track("question", q.ID)

	return nil
}

// GetQuestion implements ports.QuestionRepository.
func (s *Store) GetQuestion(_ context.Context, id string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, domain.NewNotFoundError("question", id)
	}

	return s.questionView(q), nil
}

// IncrementViews implements ports.QuestionRepository.
func (s *Store) IncrementViews(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok || !q.IsActive {
		return 0, domain.NewNotFoundError("question", id)
	}

	q.Views++

	return q.Views, nil
}

// DeactivateQuestion implements ports.QuestionRepository.
func (s *Store) DeactivateQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok || !q.IsActive {
		return domain.NewNotFoundError("question", id)
	}

	q.IsActive = false
	q.UpdatedAt = s.now()

	return nil
}

// ListQuestions implements ports.QuestionRepository by filtering and sorting
// every question in memory.
func (s *Store) ListQuestions(_ context.Context, f domain.QuestionFilter) ([]*domain.Question, int, error) {
	s.mu.RLock()

	matched := make([]*domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		view := s.questionView(q)
		if f.Matches(view) {
			matched = append(matched, view)
		}
	}

	s.mu.RUnlock()

	domain.SortQuestions(matched, f.Sort)

	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.PageSize, total)

	return matched[start:end], total, nil
}

// --- answers ---

// CreateAnswer implements ports.AnswerRepository.
func (s *Store) CreateAnswer(_ context.Context, a *domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[a.QuestionID]
	if !ok {
		return domain.NewNotFoundError("question", a.QuestionID)
	}

	if _, exists := s.answers[a.ID]; exists {
		return domain.NewConflictError("answer", "id already exists")
	}

	s.answers[a.ID] = cloneAnswer(a)
	s.track("answer", a.ID)
	q.AnswerIDs = append(q.AnswerIDs, a.ID)
	q.UpdatedAt = s.now()

	return nil
}

// GetAnswer implements ports.AnswerRepository.
func (s *Store) GetAnswer(_ context.Context, id string) (*domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.answers[id]
	if !ok {
		return nil, domain.NewNotFoundError("answer", id)
	}

	return s.answerView(a), nil
}

// ListAnswers implements ports.AnswerRepository.
func (s *Store) ListAnswers(_ context.Context, questionID string) ([]*domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Answer, 0)
	for _, a := range s.answers {
		if a.QuestionID == questionID && a.IsActive {
			out = append(out, s.answerView(a))
		}
	}

	sortBySeq(s, "answer", out, func(a *domain.Answer) string { return a.ID })

	return out, nil
}

// SetExclusiveFlag implements ports.AnswerRepository. Clearing the flag on the
// previous holder and setting it on the new one happen under one lock.
func (s *Store) SetExclusiveFlag(_ context.Context, questionID, answerID string, flag domain.AnswerFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return domain.NewNotFoundError("question", questionID)
	}

	target, ok := s.answers[answerID]
	if !ok || target.QuestionID != questionID {
		return domain.NewNotFoundError("answer", answerID)
	}

	siblings := make([]*domain.Answer, 0, len(q.AnswerIDs))
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			siblings = append(siblings, a)
		}
	}

	flag.Apply(siblings, answerID)

	now := s.now()
	target.UpdatedAt = now
	q.UpdatedAt = now

	switch flag {
	case domain.FlagAccepted:
		q.AcceptedAnswerID = answerID
	case domain.FlagPinned:
		q.PinnedAnswerID = answerID
	}

	return nil
}

// DeactivateAnswer implements ports.AnswerRepository.
func (s *Store) DeactivateAnswer(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[id]
	if !ok || !a.IsActive {
		return 0, domain.NewNotFoundError("answer", id)
	}

	now := s.now()
	a.IsActive = false
	a.UpdatedAt = now

	cascaded := 0
	for _, c := range s.comments {
		if c.AnswerID == id && c.IsActive {
			c.IsActive = false
			c.UpdatedAt = now
			cascaded++
		}
	}

	return cascaded, nil
}

// --- comments ---

// CreateComment implements ports.CommentRepository.
func (s *Store) CreateComment(_ context.Context, c *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[c.AnswerID]
	if !ok {
		return domain.NewNotFoundError("answer", c.AnswerID)
	}

	if _, exists := s.comments[c.ID]; exists {
		return domain.NewConflictError("comment", "id already exists")
	}

	cp := *c
	s.comments[c.ID] = &cp
	s.track("comment", c.ID)
	a.CommentIDs = append(a.CommentIDs, c.ID)

	return nil
}

// GetComment implements ports.CommentRepository.
func (s *Store) GetComment(_ context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, domain.NewNotFoundError("comment", id)
	}

	cp := *c

	return &cp, nil
}

// ListComments implements ports.CommentRepository.
func (s *Store) ListComments(_ context.Context, answerIDs []string) (map[string][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]*domain.Comment, len(answerIDs))
	for _, c := range s.comments {
		if c.IsActive && slices.Contains(answerIDs, c.AnswerID) {
			cp := *c
			out[c.AnswerID] = append(out[c.AnswerID], &cp)
		}
	}

	for _, group := range out {
		sortBySeq(s, "comment", group, func(c *domain.Comment) string { return c.ID })
	}

	return out, nil
}

// DeactivateComment implements ports.CommentRepository.
func (s *Store) DeactivateComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || !c.IsActive {
		return domain.NewNotFoundError("comment", id)
	}

	c.IsActive = false
	c.UpdatedAt = s.now()

	return nil
}

// --- votes ---

// CastVote implements ports.VoteRepository.
func (s *Store) CastVote(_ context.Context, target domain.VoteTarget, vote domain.Vote) (domain.VoteTally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.votes[target]
	if !ok {
		ledger = domain.VoteLedger{}
		s.votes[target] = ledger
	}

	ledger.Cast(vote.UserID, vote.Type)

	return ledger.Tally(), nil
}

// Ledger implements ports.VoteRepository.
func (s *Store) Ledger(_ context.Context, target domain.VoteTarget) (domain.VoteLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.votes[target].Clone(), nil
}

// --- notifications ---

// CreateNotification implements ports.NotificationRepository.
func (s *Store) CreateNotification(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notifications[n.ID] = &cp
	s.track("notification", n.ID)

	return nil
}

// ListNotifications implements ports.NotificationRepository.
func (s *Store) ListNotifications(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Notification, 0)
	for _, n := range s.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}

		cp := *n
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return s.order["notification:"+out[i].ID] > s.order["notification:"+out[j].ID]
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// CountUnread implements ports.NotificationRepository.
func (s *Store) CountUnread(_ context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}

	return count, nil
}

// MarkRead implements ports.NotificationRepository.
func (s *Store) MarkRead(_ context.Context, recipientID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return domain.NewNotFoundError("notification", id)
	}

	n.IsRead = true

	return nil
}

// MarkAllRead implements ports.NotificationRepository.
func (s *Store) MarkAllRead(_ context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}

	return changed, nil
}

// --- users ---

// GetUser implements ports.UserRepository.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user", id)
	}

	cp := *u

	return &cp, nil
}

// GetUsers implements ports.UserRepository.
func (s *Store) GetUsers(_ context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}

	return out, nil
}

// IncrementCounter implements ports.UserRepository, creating the user on
// first use.
func (s *Store) IncrementCounter(_ context.Context, actor domain.Actor, counter domain.UserCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	u := s.ensureUser(actor, now)

	switch counter {
	case domain.CounterQuestionsAsked:
		u.QuestionsAsked++
	case domain.CounterAnswersGiven:
		u.AnswersGiven++
	}

	u.UpdatedAt = now

	return nil
}

// EnsureUser implements ports.UserRepository.
func (s *Store) EnsureUser(_ context.Context, actor domain.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureUser(actor, s.now())

	return nil
}

// UpdateProfile implements ports.UserRepository.
func (s *Store) UpdateProfile(_ context.Context, userID string, p domain.ProfileUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || !u.IsActive {
		return nil, domain.NewNotFoundError("user", userID)
	}

	u.Bio, u.Location, u.Website = p.Bio, p.Location, p.Website
	u.UpdatedAt = s.now()

	cp := *u

	return &cp, nil
}

// --- helpers (callers hold s.mu) ---

func (s *Store) ensureUser(actor domain.Actor, now time.Time) *domain.User {
	u, ok := s.users[actor.UserID]
	if !ok {
		u = &domain.User{
			ID:        actor.UserID,
			Username:  actor.DisplayName(),
			Role:      actor.Role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.users[actor.UserID] = u
	}

	return u
}

func (s *Store) questionView(q *domain.Question) *domain.Question {
	out := cloneQuestion(q)
	out.Tally = s.votes[domain.VoteTarget{Kind: domain.TargetQuestion, ID: q.ID}].Tally()

	return out
}

func (s *Store) answerView(a *domain.Answer) *domain.Answer {
	out := cloneAnswer(a)
	out.Tally = s.votes[domain.VoteTarget{Kind: domain.TargetAnswer, ID: a.ID}].Tally()

	return out
}

func cloneQuestion(q *domain.Question) *domain.Question {
	cp := *q
	cp.Tags = slices.Clone(q.Tags)
	cp.AnswerIDs = slices.Clone(q.AnswerIDs)

	return &cp
}

func cloneAnswer(a *domain.Answer) *domain.Answer {
	cp := *a
	cp.CommentIDs = slices.Clone(a.CommentIDs)

	return &cp
}

func (s *Store) track(kind, id string) {
	s.seq++
	s.order[kind+":"+id] = s.seq
}

// sortBySeq orders items by insertion sequence.
func sortBySeq[T any](s *Store, kind string, items []T, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return s.order[kind+":"+id(items[i])] < s.order[kind+":"+id(items[j])]
	})
}
