package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

// questionSelect projects a question with its derived answer list and vote tally.
const questionSelect = `SELECT q.id, q.title, q.description, q.tags, q.author_id, q.views,
	ARRAY(SELECT a.id FROM answers a WHERE a.question_id = q.id ORDER BY a.seq) AS answer_ids,
	q.accepted_answer_id, q.pinned_answer_id, q.is_active, q.created_at, q.updated_at,
	t.up, t.down
FROM questions q
CROSS JOIN LATERAL (
	SELECT count(*) FILTER (WHERE v.vote_type = 'upvote') AS up,
	       count(*) FILTER (WHERE v.vote_type = 'downvote') AS down
	FROM votes v
	WHERE v.target_kind = 'question' AND v.target_id = q.id
) t`

// answerSelect projects an answer with its derived comment list and vote tally.
const answerSelect = `SELECT a.id, a.question_id, a.author_id, a.content,
	ARRAY(SELECT c.id FROM comments c WHERE c.answer_id = a.id ORDER BY c.seq) AS comment_ids,
	a.is_accepted, a.is_pinned, a.is_active, a.created_at, a.updated_at,
	t.up, t.down
FROM answers a
CROSS JOIN LATERAL (
	SELECT count(*) FILTER (WHERE v.vote_type = 'upvote') AS up,
	       count(*) FILTER (WHERE v.vote_type = 'downvote') AS down
	FROM votes v
	WHERE v.target_kind = 'answer' AND v.target_id = a.id
) t`

// listQuery is a question listing rendered to SQL.
type listQuery struct {
	Page      string
	PageArgs  []any
	Count     string
	CountArgs []any
}

// buildListQuery renders a normalized filter. Ordering matches domain.SortQuestions.
func buildListQuery(f domain.QuestionFilter) listQuery {
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	where := []string{"q.is_active"}

	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		where = append(where, fmt.Sprintf("(q.title ILIKE %s OR q.description ILIKE %s)", p, p))
	}

	if len(f.Tags) > 0 {
		where = append(where, "q.tags && "+arg(f.Tags))
	}

	if f.IDs != nil {
		where = append(where, "q.id = ANY("+arg(f.IDs)+")")
	}

	cond := strings.Join(where, " AND ")
	countArgs := append([]any(nil), args...)

	limit := arg(f.PageSize)
	offset := arg(f.Offset())

	return listQuery{
		Page: fmt.Sprintf("%s\nWHERE %s\nORDER BY %s\nLIMIT %s OFFSET %s",
			questionSelect, cond, orderBy(f.Sort), limit, offset),
		PageArgs:  args,
		Count:     "SELECT count(*) FROM questions q WHERE " + cond,
		CountArgs: countArgs,
	}
}

func orderBy(order domain.SortOrder) string {
	const newest = "q.created_at DESC, q.id DESC"

	switch order {
	case domain.SortOldest:
		return "q.created_at ASC, q.id ASC"
	case domain.SortVotes:
		return "(t.up - t.down) DESC, " + newest
	case domain.SortViews:
		return "q.views DESC, " + newest
	default:
		return newest
	}
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// flagColumns returns the answer column and question back reference of a flag.
func flagColumns(flag domain.AnswerFlag) (answerCol, questionCol string, err error) {
	switch flag {
	case domain.FlagAccepted:
		return "is_accepted", "accepted_answer_id", nil
	case domain.FlagPinned:
		return "is_pinned", "pinned_answer_id", nil
	default:
		return "", "", fmt.Errorf("unknown answer flag %q", flag)
	}
}
