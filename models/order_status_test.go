package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]OrderStatus{
		"pending":          StatusPending,
		"Confirmed":        StatusConfirmed,
		" preparing ":      StatusPreparing,
		"Out for delivery": StatusOutForDelivery,
		"out_for_delivery": StatusOutForDelivery,
		"DELIVERED":        StatusDelivered,
		"cancelled":        StatusCancelled,
	}
	for in, want := range cases {
		got, err := ParseOrderStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "shipped", "canceled"} {
		_, err := ParseOrderStatus(bad)
		assert.Error(t, err, bad)
	}
}

func TestTransitions(t *testing.T) {
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			allowed := from.CanTransitionTo(to)
			switch {
			case from.Terminal():
				assert.False(t, allowed, "%s -> %s", from, to)
			case to == StatusCancelled:
				assert.Equal(t, from == StatusPending, allowed, "%s -> %s", from, to)
			default:
				assert.True(t, allowed, "%s -> %s", from, to)
			}
		}
	}
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("COD")
	require.NoError(t, err)
	assert.Equal(t, PaymentCashOnDelivery, m)

	_, err = ParsePaymentMethod("card")
	assert.Error(t, err)
}

func TestShippingAddressComplete(t *testing.T) {
	addr := ShippingAddress{
		FirstName: "Sari", LastName: "Tani", Phone: "0812",
		Street: "Jl. Sawah 1", City: "Bogor", State: "Jawa Barat", ZipCode: "16111",
	}
	assert.True(t, addr.Complete(), "email is optional")

	addr.ZipCode = "  "
	assert.False(t, addr.Complete())
}
