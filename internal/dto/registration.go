package dto

// RegisterRequest signs a student up for an activity.
type RegisterRequest struct {
	ActivityID string `json:"activityId" validate:"required"`
}

// DecideRegistrationRequest approves or rejects a pending registration.
type DecideRegistrationRequest struct {
	Approve bool    `json:"approve"`
	Reason  *string `json:"reason,omitempty"`
}
