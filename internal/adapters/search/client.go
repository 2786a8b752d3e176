// Package search keeps a full-text index of questions in Elasticsearch.
package search

import (
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/jsamuelsen/qa-service/internal/platform/config"
)

const dependencyName = "elasticsearch"

// NewClient creates an Elasticsearch client sending through transport.
// Retries are left to transport, so the client's own retry loop is off.
func NewClient(cfg config.SearchConfig, transport http.RoundTripper) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return es, nil
}
