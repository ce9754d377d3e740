package service

import (
	"fmt"
	"time"

	"github.com/riverhall/attendance/internal/model"
)

// resolvedPrice is the validated outcome of pricing resolution. A zero
// Amount with Kind == KindRSVP means no payment step follows.
type resolvedPrice struct {
	Kind       model.AttendanceKind
	TicketType model.TicketType
	Amount     int64
	Currency   string
}

// resolvePrice validates the registration window and the caller's price
// selection against the event's pricing configuration.
func resolvePrice(event *model.Event, req model.RegisterRequest, now time.Time) (resolvedPrice, error) {
	if !event.RegistrationOpen(now) {
		if event.RegistrationOpensAt != nil && now.Before(*event.RegistrationOpensAt) {
			return resolvedPrice{}, ErrRegistrationNotYetOpen
		}
		return resolvedPrice{}, ErrRegistrationClosed
	}

	ticketType := req.TicketType
	if ticketType == "" {
		ticketType = model.TicketIndividual
	}

	switch event.PricingMode {
	case model.PricingFree:
		if ticketType != model.TicketIndividual {
			return resolvedPrice{}, fmt.Errorf("%w: free events offer individual attendance only", ErrValidation)
		}
		return resolvedPrice{Kind: model.KindRSVP, TicketType: ticketType}, nil

	case model.PricingFixed:
		expected := event.PriceIndividual
		if ticketType == model.TicketCouples {
			if event.PriceCouples == nil {
				return resolvedPrice{}, fmt.Errorf("%w: couples tickets are not offered for this event", ErrValidation)
			}
			expected = *event.PriceCouples
		}
		if req.AmountOffered != expected {
			return resolvedPrice{}, fmt.Errorf("%w: price is %d, got %d", ErrValidation, expected, req.AmountOffered)
		}
		return resolvedPrice{
			Kind:       model.KindTicket,
			TicketType: ticketType,
			Amount:     expected,
			Currency:   event.Currency,
		}, nil

	case model.PricingSlidingScale:
		if ticketType == model.TicketCouples {
			return resolvedPrice{}, fmt.Errorf("%w: couples tickets are not offered on sliding scale", ErrValidation)
		}
		if req.AmountOffered < event.SlidingMin || req.AmountOffered > event.SlidingMax {
			return resolvedPrice{}, fmt.Errorf("%w: amount %d outside sliding scale [%d, %d]",
				ErrValidation, req.AmountOffered, event.SlidingMin, event.SlidingMax)
		}
		return resolvedPrice{
			Kind:       model.KindTicket,
			TicketType: ticketType,
			Amount:     req.AmountOffered,
			Currency:   event.Currency,
		}, nil

	default:
		return resolvedPrice{}, fmt.Errorf("%w: unknown pricing mode %q", ErrValidation, event.PricingMode)
	}
}
