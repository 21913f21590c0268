// Package feed consumes database change-feed entries from a Redis Stream and
// hands them to registered record handlers. The feed is an adapter: handlers
// expose the actual pipeline and can equally be driven by any other
// transport.
package feed

import "context"

// Record is one change-feed entry: a document created in a collection.
// Data is the raw document JSON; an empty Data means the event carried no
// record and is handled by the consumer, never by a handler.
type Record struct {
	Collection string
	Key        string
	Data       []byte
}

// RecordHandler processes created records of a single collection.
type RecordHandler interface {
	Collection() string
	HandleRecord(ctx context.Context, rec *Record) error
}
