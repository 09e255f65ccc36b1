package rankings

import (
	"time"

	"talentranker/internal/scoring"
)

// Status is the lifecycle state of a ranking record.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the record can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ResumeScore is the outcome for one requested resume.
type ResumeScore struct {
	ResumeID   string        `json:"resumeId"`
	Filename   string        `json:"filename"`
	Label      scoring.Label `json:"label"`
	Confidence float64       `json:"confidence"`
	Error      string        `json:"error,omitempty"`
}

// Record is the durable result of one ranking request.
type Record struct {
	ID               string        `json:"id"`
	SubscriberID     string        `json:"subscriberId"`
	JobDescriptionID string        `json:"jobDescriptionId"`
	JobTitle         string        `json:"jobTitle"`
	ReservationID    string        `json:"-"`
	ResumeIDs        []string      `json:"-"`
	Results          []ResumeScore `json:"results"`
	Status           Status        `json:"status"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
}

// Upload is a raw file submitted with a ranking request.
type Upload struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Request describes one ranking submission. The job description comes from
// exactly one of JobDescriptionID, JobDescriptionFile or JobDescriptionText;
// resumes may mix ids, files and inline texts.
type Request struct {
	SubscriberID       string
	JobDescriptionID   string
	JobTitle           string
	JobDescriptionFile *Upload
	JobDescriptionText string
	ResumeIDs          []string
	ResumeFiles        []Upload
	ResumeTexts        []string
	Async              bool
}
