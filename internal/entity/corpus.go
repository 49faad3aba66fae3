package entity

import "fmt"

// Corpus identifies one knowledge base: a search index paired with the blob
// container holding its source documents.
type Corpus struct {
	Index     string `json:"azureIndex"`
	Container string `json:"azureContainer"`
}

func (c Corpus) Validate() error {
	if c.Index == "" {
		return fmt.Errorf("%w: azureIndex", ErrMissingField)
	}
	if c.Container == "" {
		return fmt.Errorf("%w: azureContainer", ErrMissingField)
	}
	return nil
}

func (c Corpus) String() string {
	return c.Index + "/" + c.Container
}
