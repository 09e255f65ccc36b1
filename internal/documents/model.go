package documents

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	// StatusFailed marks a resume whose text could not be extracted. Its credit was still consumed.
	StatusFailed Status = "failed"
)

const descriptionRunes = 500

// JobDescription is immutable after creation except RankedCount and Status.
type JobDescription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"-"`
	StorageKey   string    `json:"-"`
	Status       Status    `json:"status"`
	RankedCount  int       `json:"rankedCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Resume is immutable after creation except Status.
type Resume struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	Filename     string    `json:"filename"`
	Content      string    `json:"-"`
	SizeBytes    int64     `json:"sizeBytes"`
	StorageKey   string    `json:"-"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Batch is the set of records created for one ranking submission.
type Batch struct {
	JobDescription *JobDescription
	Resumes        []Resume
}
