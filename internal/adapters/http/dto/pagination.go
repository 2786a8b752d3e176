package dto

import (
	"strings"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

// MaxLimit is the largest page a client may request.
const MaxLimit = 100

// QuestionListQuery is the query string of GET /questions.
// Out-of-range page and limit values are clamped by the listing rules.
type QuestionListQuery struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search" validate:"max=200"`
	Tags   string `form:"tags"`
	Sort   string `form:"sort" validate:"omitempty,oneof=newest oldest votes views"`
}

// Filter converts the query into a domain filter.
func (q QuestionListQuery) Filter() domain.QuestionFilter {
	return domain.QuestionFilter{
		Search:   q.Search,
		Tags:     SplitList(q.Tags),
		Sort:     domain.SortOrder(q.Sort),
		Page:     q.Page,
		PageSize: q.Limit,
	}
}

// NotificationListQuery is the query string of GET /notifications.
type NotificationListQuery struct {
	Unread bool `form:"unread"`
	Limit  int  `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
