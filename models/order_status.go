package models

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// transitions is the full table of allowed moves. Admins may jump between
// any non-terminal statuses, in either direction. Cancellation is only
// reachable from pending, and terminal statuses have no entry.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled},
	StatusConfirmed:      {StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered},
	StatusPreparing:      {StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered},
	StatusOutForDelivery: {StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered},
}

// ParseOrderStatus normalises case and accepts the legacy "out for delivery"
// spelling.
func ParseOrderStatus(s string) (OrderStatus, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	status := OrderStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}
