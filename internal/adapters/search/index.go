package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// indexMapping is applied when the index is first created. The wildcard
// subfields back literal substring search.
const indexMapping = `{
  "mappings": {
    "properties": {
      "title":       {"type": "text", "fields": {"substr": {"type": "wildcard"}}},
      "description": {"type": "text", "fields": {"substr": {"type": "wildcard"}}},
      "tags":        {"type": "keyword"},
      "author_id":   {"type": "keyword"},
      "created_at":  {"type": "date"}
    }
  }
}`

// document is the indexed form of a question.
type document struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	AuthorID    string    `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Index implements ports.QuestionSearcher and ports.HealthChecker.
type Index struct {
	es     *elasticsearch.Client
	name   string
	logger *slog.Logger
}

var (
	_ ports.QuestionSearcher = (*Index)(nil)
	_ ports.HealthChecker    = (*Index)(nil)
)

// NewIndex returns an Index over the named Elasticsearch index.
func NewIndex(es *elasticsearch.Client, name string, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}

	return &Index{
		es:     es,
		name:   name,
		logger: logger.With(slog.String("component", "search.Index"), slog.String("index", name)),
	}
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (i *Index) EnsureIndex(ctx context.Context) error {
	const op = "ensure index"

	res, err := esapi.IndicesExistsRequest{Index: []string{i.name}}.Do(ctx, i.es)
	if err != nil {
		return domain.NewDependencyError(dependencyName, op, err)
	}

	closeResponse(res)

	if res.StatusCode == http.StatusOK {
		return nil
	}

	if res.StatusCode != http.StatusNotFound {
		return domain.NewDependencyError(dependencyName, op, responseError(res))
	}

	res, err = esapi.IndicesCreateRequest{
		Index: i.name,
		Body:  bytes.NewReader([]byte(indexMapping)),
	}.Do(ctx, i.es)
	if err != nil {
		return domain.NewDependencyError(dependencyName, op, err)
	}
	defer closeResponse(res)

	// A concurrent creator wins the race with a 400 resource_already_exists_exception.
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return domain.NewDependencyError(dependencyName, op, responseError(res))
	}

	i.logger.InfoContext(ctx, "search index ready")

	return nil
}

// IndexQuestion adds or replaces the question's document.
func (i *Index) IndexQuestion(ctx context.Context, q *domain.Question) error {
	const op = "index question"

	body, err := json.Marshal(document{
		Title:       q.Title,
		Description: q.Description,
		Tags:        q.Tags,
		AuthorID:    q.AuthorID,
		CreatedAt:   q.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding question %s: %w", q.ID, err)
	}

	res, err := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: q.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, i.es)
	if err != nil {
		return domain.NewDependencyError(dependencyName, op, err)
	}
	defer closeResponse(res)

	if res.IsError() {
		return domain.NewDependencyError(dependencyName, op, responseError(res))
	}

	return nil
}

// RemoveQuestion drops the question's document. A missing document is not an error.
func (i *Index) RemoveQuestion(ctx context.Context, id string) error {
	const op = "remove question"

	res, err := esapi.DeleteRequest{Index: i.name, DocumentID: id}.Do(ctx, i.es)
	if err != nil {
		return domain.NewDependencyError(dependencyName, op, err)
	}
	defer closeResponse(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return domain.NewDependencyError(dependencyName, op, responseError(res))
	}

	return nil
}

// SearchQuestionIDs returns at most limit ids of questions whose title or
// description contains text as a case-insensitive literal substring.
func (i *Index) SearchQuestionIDs(ctx context.Context, text string, limit int) ([]string, error) {
	const op = "search questions"

	query := map[string]any{
		"query":   substringQuery(text, "title.substr", "description.substr"),
		"sort":    []any{map[string]any{"created_at": "desc"}},
		"_source": false,
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encoding search query: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{i.name},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}.Do(ctx, i.es)
	if err != nil {
		return nil, domain.NewDependencyError(dependencyName, op, err)
	}
	defer closeResponse(res)

	if res.IsError() {
		return nil, domain.NewDependencyError(dependencyName, op, responseError(res))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, domain.NewDependencyError(dependencyName, op, fmt.Errorf("decoding response: %w", err))
	}

	ids := make([]string, len(parsed.Hits.Hits))
	for n, hit := range parsed.Hits.Hits {
		ids[n] = hit.ID
	}

	return ids, nil
}

// Name implements ports.HealthChecker.
func (i *Index) Name() string { return dependencyName }

// Check pings the cluster.
func (i *Index) Check(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, i.es)
	if err != nil {
		return err
	}
	defer closeResponse(res)

	if res.IsError() {
		return responseError(res)
	}

	return nil
}

// substringQuery matches docs where any field contains text. Wildcard
// metacharacters in text are escaped so they match literally.
func substringQuery(text string, fields ...string) map[string]any {
	pattern := "*" + wildcardEscaper.Replace(text) + "*"

	should := make([]any, len(fields))
	for n, field := range fields {
		should[n] = map[string]any{
			"wildcard": map[string]any{
				field: map[string]any{"value": pattern, "case_insensitive": true},
			},
		}
	}

	return map[string]any{
		"bool": map[string]any{"should": should, "minimum_should_match": 1},
	}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func responseError(res *esapi.Response) error {
	return fmt.Errorf("unexpected response: %s", res.Status())
}

func closeResponse(res *esapi.Response) {
	if res.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
