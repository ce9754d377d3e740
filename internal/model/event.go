// Package model defines the core domain types for the attendance engine.
package model

import "time"

// PricingMode determines how a ticket price is derived for an event.
type PricingMode string

const (
	PricingFixed        PricingMode = "fixed"
	PricingSlidingScale PricingMode = "sliding_scale"
	PricingFree         PricingMode = "free"
)

// TicketType selects which offered price applies to a registration.
type TicketType string

const (
	TicketIndividual TicketType = "individual"
	TicketCouples    TicketType = "couples"
)

// VolunteerPolicy controls how volunteer-granted tickets interact with the
// event's capacity pool.
type VolunteerPolicy string

const (
	// VolunteerExempt grants tickets without touching any capacity counter.
	VolunteerExempt VolunteerPolicy = "exempt"
	// VolunteerSubQuota reserves volunteer tickets against a dedicated
	// sub-pool sized by Event.VolunteerQuota.
	VolunteerSubQuota VolunteerPolicy = "sub_quota"
)

// Event represents a bookable event created by an organizer.
//
// All monetary amounts are in minor units (cents) of Currency.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`

	Capacity         int `json:"capacity"`
	CurrentAttendees int `json:"current_attendees"`

	// Registration window. A nil bound means unbounded on that side.
	RegistrationOpensAt  *time.Time `json:"registration_opens_at,omitempty"`
	RegistrationClosesAt *time.Time `json:"registration_closes_at,omitempty"`

	// RefundCutoffHours is how many hours before StartAt cancellations stop
	// qualifying for an automatic refund.
	RefundCutoffHours int `json:"refund_cutoff_hours"`

	PricingMode PricingMode `json:"pricing_mode"`
	Currency    string      `json:"currency"`

	// Fixed pricing. PriceCouples is nil when no couples ticket is offered.
	PriceIndividual int64  `json:"price_individual,omitempty"`
	PriceCouples    *int64 `json:"price_couples,omitempty"`

	// Sliding-scale pricing bounds.
	SlidingMin       int64 `json:"sliding_min,omitempty"`
	SlidingSuggested int64 `json:"sliding_suggested,omitempty"`
	SlidingMax       int64 `json:"sliding_max,omitempty"`

	// Volunteer ticket handling.
	VolunteerPolicy    VolunteerPolicy `json:"volunteer_policy"`
	VolunteerQuota     int             `json:"volunteer_quota,omitempty"`
	VolunteerAttendees int             `json:"volunteer_attendees,omitempty"`

	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Remaining returns the number of available general-admission seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.CurrentAttendees
}

// IsFull returns true when no general-admission seats remain.
func (e *Event) IsFull() bool {
	return e.CurrentAttendees >= e.Capacity
}

// RegistrationOpen reports whether now falls inside the registration window.
func (e *Event) RegistrationOpen(now time.Time) bool {
	if e.RegistrationOpensAt != nil && now.Before(*e.RegistrationOpensAt) {
		return false
	}
	if e.RegistrationClosesAt != nil && now.After(*e.RegistrationClosesAt) {
		return false
	}
	return true
}

// RefundDeadline returns the instant after which cancellations no longer
// qualify for an automatic refund.
func (e *Event) RefundDeadline() time.Time {
	return e.StartAt.Add(-time.Duration(e.RefundCutoffHours) * time.Hour)
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`

	Capacity int `json:"capacity"`

	RegistrationOpensAt  *time.Time `json:"registration_opens_at,omitempty"`
	RegistrationClosesAt *time.Time `json:"registration_closes_at,omitempty"`
	RefundCutoffHours    int        `json:"refund_cutoff_hours"`

	PricingMode      PricingMode `json:"pricing_mode"`
	Currency         string      `json:"currency"`
	PriceIndividual  int64       `json:"price_individual,omitempty"`
	PriceCouples     *int64      `json:"price_couples,omitempty"`
	SlidingMin       int64       `json:"sliding_min,omitempty"`
	SlidingSuggested int64       `json:"sliding_suggested,omitempty"`
	SlidingMax       int64       `json:"sliding_max,omitempty"`

	VolunteerPolicy VolunteerPolicy `json:"volunteer_policy,omitempty"`
	VolunteerQuota  int             `json:"volunteer_quota,omitempty"`

	Published bool `json:"published"`
}

// CapacityInfo is the read model for GET /events/{id}/capacity.
type CapacityInfo struct {
	Capacity  int `json:"capacity"`
	Current   int `json:"current"`
	Available int `json:"available"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
