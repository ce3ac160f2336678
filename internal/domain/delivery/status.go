package delivery

import "github.com/IvoireMarket/shop-api/internal/httperr"

// ===============================
// Delivery Status
// ===============================

type Status string

const (
	StatusPending    Status = "pending"
	StatusPreparing  Status = "preparing"
	StatusPickup     Status = "pickup"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusPreparing, StatusCancelled},
	StatusPreparing:  {StatusPickup, StatusCancelled},
	StatusPickup:     {StatusDelivering, StatusCancelled},
	StatusDelivering: {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func IsValid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to Status) error {
	if !IsValid(to) {
		return httperr.ErrBusiness("invalid_status")
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return httperr.ErrBusiness("invalid_status_transition")
}

// CanRecordPosition limits position updates to deliveries still in flight.
func CanRecordPosition(current Status) error {
	switch current {
	case StatusDelivered, StatusCancelled:
		return httperr.ErrBusiness("delivery_finished")
	}
	return nil
}

func InitialStatus() Status {
	return StatusPending
}
