package entity

// Blob is a source document fetched from the active container.
type Blob struct {
	Name        string
	Content     []byte
	ContentType string
}
