package service

import "repairdesk/pkg/model"

// transitions is the full lifecycle graph. Any pair missing here is rejected.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusDraft:          {model.StatusPending, model.StatusCancelled},
	model.StatusPending:        {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed:      {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress:     {model.StatusReadyForPickup, model.StatusCompleted, model.StatusCancelled},
	model.StatusReadyForPickup: {model.StatusCompleted},
	model.StatusCompleted:      {},
	model.StatusCancelled:      {},
}

func CanTransition(from, to model.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the states reachable from status in one step.
func AllowedTransitions(status model.BookingStatus) []model.BookingStatus {
	next := transitions[status]
	out := make([]model.BookingStatus, len(next))
	copy(out, next)
	return out
}
