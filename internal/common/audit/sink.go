// Package audit indexes aggregated dispatch reports for later inspection.
// Indexing is best-effort telemetry: a failed write is logged and never
// changes the dispatch outcome.
package audit

import (
	"context"
	"encoding/json"

	"mealbell/internal/common/logger"
)

// Indexer abstracts the Elasticsearch index call for mocking.
type Indexer interface {
	Index(ctx context.Context, index, docID string, body []byte) error
}

// Sink writes one document per completed dispatch invocation.
type Sink struct {
	es     Indexer
	index  string
	logger logger.Logger
}

func NewSink(es Indexer, index string, log logger.Logger) *Sink {
	return &Sink{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit-sink"}),
	}
}

// Record indexes the report under the given document id.
func (s *Sink) Record(ctx context.Context, docID string, report interface{}) {
	if s == nil || s.es == nil {
		return
	}

	body, err := json.Marshal(report)
	if err != nil {
		s.logger.Error("report marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := s.es.Index(ctx, s.index, docID, body); err != nil {
		s.logger.Warn("dispatch report not indexed", map[string]interface{}{
			"docId": docID,
			"error": err.Error(),
		})
	}
}
