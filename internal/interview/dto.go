package interview

import "time"

// QuestionDTO is a question as served over HTTP: media references are
// resolved to short-lived presigned GET URLs, never raw object keys.
type QuestionDTO struct {
	ID         string    `json:"id"`
	Ordinal    int       `json:"ordinal"`
	Text       string    `json:"text"`
	Category   Category  `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Answered   bool      `json:"answered"`
	CreatedAt  time.Time `json:"createdAt"`
}

// InterviewDTO is the full interview representation returned by Start and
// Get.
type InterviewDTO struct {
	ID           string        `json:"id"`
	Status       Status        `json:"status"`
	Type         string        `json:"type"`
	OverallScore *int          `json:"overallScore,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
	Questions    []QuestionDTO `json:"questions"`
}

// InterviewSummaryDTO is the lightweight, no-questions representation used
// by the history listing endpoint.
type InterviewSummaryDTO struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Type         string     `json:"type"`
	OverallScore *int       `json:"overallScore,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// FeedbackDTO is the feedback representation returned once an interview
// reaches COMPLETED.
type FeedbackDTO struct {
	OverallScore     int       `json:"overallScore"`
	Strengths        []string  `json:"strengths"`
	Weaknesses       []string  `json:"weaknesses"`
	Recommendations  []string  `json:"recommendations"`
	DetailedAnalysis string    `json:"detailedAnalysis"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// FeedbackResult carries both the interview's current status and, when
// available, its feedback. A nil Feedback with a non-COMPLETED Status lets
// the HTTP layer distinguish "still processing" (202) from "never will
// have feedback" (404) without a second round trip.
type FeedbackResult struct {
	Status   Status
	Feedback *FeedbackDTO
}

// UploadURLResult is returned by IssueUploadURL.
type UploadURLResult struct {
	UploadURL        string `json:"uploadUrl"`
	S3Key            string `json:"s3Key"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}
