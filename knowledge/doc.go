// Package knowledge implements the document store behind the internal search
// and retrieval tools.
//
// Documents are split into overlapping word windows ("chunks"). Every chunk
// is indexed lexically in an in-memory bleve index and, when an embedding
// function is configured, in a chromem-go vector collection. Search runs both
// legs and merges them with reciprocal rank fusion. Filters use a small OData
// style subset: `field eq 'value'` clauses joined by `and`.
package knowledge
