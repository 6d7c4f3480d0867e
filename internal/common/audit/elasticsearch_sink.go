package audit

import "context"

// DocumentIndexer is implemented by database.ElasticsearchClient.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

// ElasticsearchSink indexes each event as a document keyed by Event.ID.
type ElasticsearchSink struct {
	client DocumentIndexer
	index  string
}

func NewElasticsearchSink(client DocumentIndexer, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Record(ctx context.Context, e Event) error {
	return s.client.IndexDocument(ctx, s.index, e.ID, e)
}
