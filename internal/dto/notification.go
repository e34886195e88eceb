package dto

// BroadcastRequest captures POST /notifications/broadcast payload. TargetID
// is the student user id for SINGLE scope and the activity id for ACTIVITY
// scope; CLASS scope derives its classes from the sender.
type BroadcastRequest struct {
	Scope    string `json:"scope" validate:"required"`
	TargetID string `json:"targetId"`
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
}

// BroadcastResponse reports how many recipients the broadcast reached.
type BroadcastResponse struct {
	Recipients int    `json:"recipients"`
	Warning    string `json:"warning,omitempty"`
}
