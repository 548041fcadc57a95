package model

// Activity types recorded by the flashcards screens.
const (
	TypeDeckCreated       = "deck_created"
	TypeFlashcardAdded    = "flashcard_added"
	TypeStudySession      = "study_session"
	TypeQuizCompleted     = "quiz_completed"
	TypeFeedbackSubmitted = "feedback_submitted"
)

// Activity is one entry of the user's recent-activity feed.
type Activity struct {
	ID           string `json:"id"`
	UserID       string `json:"userId,omitempty"`
	ActivityType string `json:"activityType"`
	Description  string `json:"description"`
	RelatedID    string `json:"relatedId,omitempty"`
	// CreatedAt is kept as sent; the backend emits local times without a zone.
	CreatedAt string `json:"createdAt,omitempty"`
}

// LogRequest is the body of POST /activities/log.
type LogRequest struct {
	ActivityType string  `json:"activityType"`
	Description  string  `json:"description"`
	RelatedID    *string `json:"relatedId"`
}
