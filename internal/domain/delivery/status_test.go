package delivery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IvoireMarket/shop-api/internal/domain/delivery"
	"github.com/IvoireMarket/shop-api/internal/httperr"
)

func TestDeliveryTransitions(t *testing.T) {
	cases := []struct {
		from, to delivery.Status
		ok       bool
	}{
		{delivery.StatusPending, delivery.StatusPreparing, true},
		{delivery.StatusPreparing, delivery.StatusPickup, true},
		{delivery.StatusPickup, delivery.StatusDelivering, true},
		{delivery.StatusDelivering, delivery.StatusDelivered, true},
		{delivery.StatusDelivering, delivery.StatusCancelled, true},

		{delivery.StatusPending, delivery.StatusDelivered, false},
		{delivery.StatusDelivered, delivery.StatusPending, false},
		{delivery.StatusCancelled, delivery.StatusPreparing, false},
	}

	for _, tc := range cases {
		err := delivery.CanTransition(tc.from, tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.Error(t, err, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestPositionsOnlyWhileInFlight(t *testing.T) {
	assert.NoError(t, delivery.CanRecordPosition(delivery.StatusDelivering))
	assert.NoError(t, delivery.CanRecordPosition(delivery.StatusPending))

	err := delivery.CanRecordPosition(delivery.StatusDelivered)
	assert.True(t, httperr.IsBusiness(err, "delivery_finished"))

	err = delivery.CanRecordPosition(delivery.StatusCancelled)
	assert.True(t, httperr.IsBusiness(err, "delivery_finished"))
}
