package vectorstore

import "errors"

var (
	// ErrInvalidConfig indicates missing or malformed store configuration.
	ErrInvalidConfig = errors.New("invalid vectorstore configuration")

	// ErrConnectionFailed indicates the Qdrant gRPC connection could not
	// be established.
	ErrConnectionFailed = errors.New("qdrant connection failed")

	// ErrQueryFailed indicates a vector index error during search. The
	// pipeline aborts the request when it sees this.
	ErrQueryFailed = errors.New("index query failed")

	// ErrCollectionNotFound indicates the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrMalformedPayload indicates a stored payload is missing required
	// fields and cannot be reconstructed into chunk metadata.
	ErrMalformedPayload = errors.New("malformed point payload")
)
