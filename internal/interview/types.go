// Package interview implements the interview lifecycle entities, the
// status state machine, and the orchestration service that drives START,
// GET, the upload handshake, and COMPLETE.
package interview

import "time"

// Status is an interview's position in the lifecycle state machine.
type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusGeneratingVideos  Status = "GENERATING_VIDEOS"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusProcessing        Status = "PROCESSING"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
)

// Category and Difficulty enumerate a Question's classification.
type Category string

const (
	CategoryTechnical   Category = "technical"
	CategoryBehavioral  Category = "behavioral"
	CategorySituational Category = "situational"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Interview is the root entity of the lifecycle, owned exclusively by a
// single user.
type Interview struct {
	ID           string
	UserID       string
	ResumeID     string
	JobRoleID    string
	Status       Status
	Type         string
	OverallScore *int
	Version      int64
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Question belongs to exactly one Interview. AvatarKey is a blob-store
// object key, never a presigned URL; it transitions nil -> set at most
// once.
type Question struct {
	ID          string
	InterviewID string
	Ordinal     int
	Text        string
	Category    Category
	Difficulty  Difficulty
	AvatarKey   *string
	CreatedAt   time.Time
}

// Response is the one-to-one answer to a Question. Transcription is
// monotonic: once set, it is never cleared.
type Response struct {
	ID              string
	QuestionID      string
	InterviewID     string
	UserID          string
	VideoKey        string
	Transcription   *string
	Confidence      *float64
	DurationSeconds *float64
	CreatedAt       time.Time
}

// Feedback is the one-to-one terminal scoring artifact for a COMPLETED
// interview.
type Feedback struct {
	ID               string
	InterviewID      string
	UserID           string
	OverallScore     int
	Strengths        []string
	Weaknesses       []string
	Recommendations  []string
	DetailedAnalysis string
	GeneratedAt      time.Time
}
