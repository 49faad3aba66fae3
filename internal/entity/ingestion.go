package entity

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// IngestionJob tracks one run of the external ingestion script.
type IngestionJob struct {
	ID         string     `json:"id"`
	Corpus     Corpus     `json:"corpus"`
	Status     JobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	FileCount  int        `json:"file_count"`
	DataDir    string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type UploadFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UploadFilesRequest is the body of POST /uploadFiles
type UploadFilesRequest struct {
	AzureIndex     string       `json:"azureIndex"`
	AzureContainer string       `json:"azureContainer"`
	Files          []UploadFile `json:"files"`
}

func (r *UploadFilesRequest) Corpus() Corpus {
	return Corpus{Index: r.AzureIndex, Container: r.AzureContainer}
}

func (r *UploadFilesRequest) Validate() error {
	if r.AzureIndex == "" || r.AzureContainer == "" {
		return fmt.Errorf("%w: azureIndex and azureContainer are required", ErrMissingField)
	}
	if len(r.Files) == 0 {
		return fmt.Errorf("%w: no files provided", ErrMissingField)
	}
	for i, f := range r.Files {
		if f.Name == "" {
			return fmt.Errorf("%w: files[%d].name", ErrMissingField, i)
		}
	}
	return nil
}

// RunScriptRequest is the optional body of POST /runScript
type RunScriptRequest struct {
	AzureIndex     string `json:"azureIndex"`
	AzureContainer string `json:"azureContainer"`
}

// FileData is a decoded upload ready to be staged for ingestion.
type FileData struct {
	Filename string
	Content  []byte
}

type IngestionAccepted struct {
	Result         string        `json:"result"`
	AzureIndex     string        `json:"azureIndex"`
	AzureContainer string        `json:"azureContainer"`
	Job            *IngestionJob `json:"job"`
}
