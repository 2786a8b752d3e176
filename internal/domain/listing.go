package domain

import (
	"slices"
	"sort"
	"strings"
)

// Listing defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortOrder is the ordering of a question listing.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortVotes  SortOrder = "votes"
	SortViews  SortOrder = "views"
)

// ParseSortOrder validates a sort key; the empty string selects SortNewest.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortVotes, SortViews:
		return SortOrder(s), nil
	default:
		return "", NewValidationError("sort", "must be one of newest, oldest, votes, views")
	}
}

// QuestionFilter selects active questions for a listing.
type QuestionFilter struct {
	// Search matches title or description, case-insensitively, as a substring.
	Search string

	// Tags selects questions carrying at least one of the tags.
	Tags []string

	// IDs restricts the listing to these questions when non-nil.
	// It carries results resolved by an external search index.
	IDs []string

	Sort     SortOrder
	Page     int
	PageSize int
}

// Normalize applies defaults and bounds. maxPageSize <= 0 uses MaxPageSize.
func (f QuestionFilter) Normalize(defaultPageSize, maxPageSize int) (QuestionFilter, error) {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}

	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}

	sortOrder, err := ParseSortOrder(string(f.Sort))
	if err != nil {
		return QuestionFilter{}, err
	}

	out := f
	out.Search = strings.TrimSpace(f.Search)
	out.Tags = lowerAll(f.Tags)
	out.Sort = sortOrder

	if out.Page < 1 {
		out.Page = 1
	}

	switch {
	case out.PageSize <= 0:
		out.PageSize = defaultPageSize
	case out.PageSize > maxPageSize:
		out.PageSize = maxPageSize
	}

	return out, nil
}

// Offset is the number of rows skipped before the current page.
func (f QuestionFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Matches reports whether an active question satisfies the search, tag and id constraints.
func (f QuestionFilter) Matches(q *Question) bool {
	if !q.IsActive {
		return false
	}

	if f.IDs != nil && !slices.Contains(f.IDs, q.ID) {
		return false
	}

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(q.Title), needle) &&
			!strings.Contains(strings.ToLower(q.Description), needle) {
			return false
		}
	}

	if len(f.Tags) > 0 && !slices.ContainsFunc(q.Tags, func(t string) bool {
		return slices.Contains(f.Tags, t)
	}) {
		return false
	}

	return true
}

// SortQuestions orders questions in place. Ties fall back to newest first.
func SortQuestions(qs []*Question, order SortOrder) {
	newer := func(a, b *Question) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}

		return a.ID > b.ID
	}

	sort.SliceStable(qs, func(i, j int) bool {
		a, b := qs[i], qs[j]
		switch order {
		case SortOldest:
			return newer(b, a)
		case SortVotes:
			if a.Score() != b.Score() {
				return a.Score() > b.Score()
			}
		case SortViews:
			if a.Views != b.Views {
				return a.Views > b.Views
			}
		}

		return newer(a, b)
	})
}

// PageInfo describes an offset-paginated result.
type PageInfo struct {
	CurrentPage int
	PageSize    int
	TotalPages  int
	TotalCount  int
	HasNext     bool
	HasPrev     bool
}

// NewPageInfo computes pagination metadata with TotalPages = ceil(total/pageSize).
func NewPageInfo(page, pageSize, total int) PageInfo {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return PageInfo{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}

	return out
}
