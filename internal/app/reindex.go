package app

import (
	"context"
	"fmt"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// DefaultReindexWorkers is the number of concurrent index writers.
const DefaultReindexWorkers = 4

// Reindex pushes every active question into the search index, page by page.
// It returns the number of questions indexed.
func Reindex(ctx context.Context, questions ports.QuestionRepository, searcher ports.QuestionSearcher, workers int) (int, error) {
	if workers <= 0 {
		workers = DefaultReindexWorkers
	}

	filter := domain.QuestionFilter{
		Sort:     domain.SortOldest,
		Page:     1,
		PageSize: domain.MaxPageSize,
	}

	indexed := 0

	for {
		page, total, err := questions.ListQuestions(ctx, filter)
		if err != nil {
			return indexed, fmt.Errorf("listing questions for reindex: %w", err)
		}

		err = FanOut(ctx, workers, page, searcher.IndexQuestion)
		if err != nil {
			return indexed, fmt.Errorf("indexing page %d: %w", filter.Page, err)
		}

		indexed += len(page)

		if len(page) == 0 || filter.Offset()+len(page) >= total {
			return indexed, nil
		}

		filter.Page++
	}
}
