package dto

// AssignMonitorRequest reassigns the class monitor seat.
type AssignMonitorRequest struct {
	StudentID string `json:"studentId" validate:"required"`
}
