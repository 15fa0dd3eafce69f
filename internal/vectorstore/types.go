package vectorstore

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/fyrsmithlabs/ragd/internal/embeddings"
)

// Payload carries enough document and chunk metadata to rebuild context
// without a second document-store lookup.
type Payload struct {
	DocumentID   string
	Title        string
	URL          string
	ChildText    string
	ParentText   string
	ParentIndex  int
	ChildIndex   int
	ContentType  string
	QualityScore int
}

// Point is a stored (child text, dense vector, sparse vector, payload) tuple.
type Point struct {
	ID      string
	Dense   []float32
	Sparse  embeddings.SparseVector
	Payload Payload
}

// ScoredPoint is a query hit.
type ScoredPoint struct {
	ID      string
	Payload Payload
	Score   float32
	// Vector is the stored dense vector, present only when the query
	// requested vectors (for MMR re-selection).
	Vector []float32
}

// toQdrantPayload converts a Payload into the qdrant wire representation.
func toQdrantPayload(p Payload) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"document_id":   {Kind: &qdrant.Value_StringValue{StringValue: p.DocumentID}},
		"title":         {Kind: &qdrant.Value_StringValue{StringValue: p.Title}},
		"url":           {Kind: &qdrant.Value_StringValue{StringValue: p.URL}},
		"child_text":    {Kind: &qdrant.Value_StringValue{StringValue: p.ChildText}},
		"parent_text":   {Kind: &qdrant.Value_StringValue{StringValue: p.ParentText}},
		"parent_index":  {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.ParentIndex)}},
		"child_index":   {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.ChildIndex)}},
		"content_type":  {Kind: &qdrant.Value_StringValue{StringValue: p.ContentType}},
		"quality_score": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.QualityScore)}},
	}
}

// parsePayload validates and converts a qdrant payload back into a Payload.
// Missing required fields produce ErrMalformedPayload instead of silently
// defaulting.
func parsePayload(raw map[string]*qdrant.Value) (Payload, error) {
	var p Payload

	str := func(key string) (string, bool) {
		v, ok := raw[key]
		if !ok {
			return "", false
		}
		s, ok := v.Kind.(*qdrant.Value_StringValue)
		if !ok {
			return "", false
		}
		return s.StringValue, true
	}
	integer := func(key string) (int, bool) {
		v, ok := raw[key]
		if !ok {
			return 0, false
		}
		n, ok := v.Kind.(*qdrant.Value_IntegerValue)
		if !ok {
			return 0, false
		}
		return int(n.IntegerValue), true
	}

	var ok bool
	if p.DocumentID, ok = str("document_id"); !ok {
		return p, fmt.Errorf("%w: document_id", ErrMalformedPayload)
	}
	if p.Title, ok = str("title"); !ok {
		return p, fmt.Errorf("%w: title", ErrMalformedPayload)
	}
	if p.URL, ok = str("url"); !ok {
		return p, fmt.Errorf("%w: url", ErrMalformedPayload)
	}
	if p.ChildText, ok = str("child_text"); !ok {
		return p, fmt.Errorf("%w: child_text", ErrMalformedPayload)
	}
	if p.ParentText, ok = str("parent_text"); !ok {
		return p, fmt.Errorf("%w: parent_text", ErrMalformedPayload)
	}
	if p.ParentIndex, ok = integer("parent_index"); !ok {
		return p, fmt.Errorf("%w: parent_index", ErrMalformedPayload)
	}
	if p.ChildIndex, ok = integer("child_index"); !ok {
		return p, fmt.Errorf("%w: child_index", ErrMalformedPayload)
	}

	// Optional fields.
	p.ContentType, _ = str("content_type")
	p.QualityScore, _ = integer("quality_score")

	return p, nil
}
