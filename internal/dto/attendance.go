package dto

// ConfirmAttendanceRequest marks a student present at an activity.
type ConfirmAttendanceRequest struct {
	StudentID  string `json:"studentId" validate:"required"`
	ActivityID string `json:"activityId" validate:"required"`
}
