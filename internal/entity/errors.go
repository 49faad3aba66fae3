package entity

import "errors"

// Domain errors
var (
	// Request errors
	ErrNotJSON          = errors.New("request must be json")
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")

	// Upstream errors
	ErrContentFilter = errors.New("content flagged by the content filter")
	ErrUnauthorized  = errors.New("unauthorized")

	// Corpus errors
	ErrConfiguration     = errors.New("missing or invalid configuration")
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	ErrNotFound          = errors.New("not found")

	// Upload errors
	ErrTooManyFiles     = errors.New("too many files")
	ErrInvalidExtension = errors.New("file extension not allowed")
	ErrFileTooLarge     = errors.New("file too large")
	ErrRequestTooLarge  = errors.New("request body too large")

	// Ingestion errors
	ErrIngestionFailed = errors.New("ingestion failed")
	ErrJobNotFound     = errors.New("ingestion job not found")
)
