package model

import "time"

// VolunteerAssignmentStatus is the lifecycle state of a volunteer shift.
type VolunteerAssignmentStatus string

const (
	AssignmentPending   VolunteerAssignmentStatus = "pending"
	AssignmentFulfilled VolunteerAssignmentStatus = "fulfilled"
	AssignmentCancelled VolunteerAssignmentStatus = "cancelled"
)

// VolunteerAssignment links a user to a volunteer task at an event. A
// fulfilled, background-checked assignment may be converted into a Ticket
// at TicketPrice (commonly zero).
type VolunteerAssignment struct {
	ID      string `json:"id"`
	TaskID  string `json:"task_id"`
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`

	Status                  VolunteerAssignmentStatus `json:"status"`
	HasTicket               bool                      `json:"has_ticket"`
	TicketPrice             int64                     `json:"ticket_price"`
	BackgroundCheckVerified bool                      `json:"background_check_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Eligible reports whether the assignment qualifies for a ticket grant.
func (a *VolunteerAssignment) Eligible() bool {
	return a.Status == AssignmentFulfilled && a.BackgroundCheckVerified && !a.HasTicket
}
