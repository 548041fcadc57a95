package model

// Feedback categories offered by the feedback screen.
const (
	CategoryBug     = "bug"
	CategoryFeature = "feature"
	CategoryGeneral = "general"
	CategoryOther   = "other"
)

// Feedback is one entry the user has sent. Status is set by admins on the backend.
type Feedback struct {
	ID           string `json:"id"`
	UserID       string `json:"userId,omitempty"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	Category     string `json:"category,omitempty"`
	Rating       int    `json:"rating,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	Status       string `json:"status,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// SubmitRequest is the body of POST /feedback.
type SubmitRequest struct {
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	Category     string `json:"category,omitempty"`
	Rating       int    `json:"rating,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
}
