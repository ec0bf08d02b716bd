// Package queue defines message payloads exchanged over the message broker.
package queue

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Queue names. Each is a durable queue on the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueSeatsReleased    = "booking.released"
	QueueReconciliation   = "booking.reconciliation"
)

// SeatsBookedEvent is published after a confirm claimed at least one seat
// and the quota write went through. It carries enough for downstream
// consumers to log or notify without reading the ledger.
type SeatsBookedEvent struct {
	SessionID      string   `json:"session_id"`
	BuyerName      string   `json:"buyer_name"`
	Contact        string   `json:"contact"`
	Receipt        string   `json:"receipt"`
	Seats          []string `json:"seats"`
	Failed         []string `json:"failed,omitempty"`
	TicketsAllowed int      `json:"tickets_allowed"`
	TicketsUsed    int      `json:"tickets_used"`
	ConfirmedAt    string   `json:"confirmed_at"`
}

// SeatsReleasedEvent is published when a buyer gives up all their seats
// to pick again.
type SeatsReleasedEvent struct {
	SessionID  string   `json:"session_id"`
	BuyerName  string   `json:"buyer_name"`
	Receipt    string   `json:"receipt"`
	Seats      []string `json:"seats"`
	ReleasedAt string   `json:"released_at"`
}

// ReconciliationAlert is published when the Seats and Whitelist tables may
// disagree, or when the ledger failed in the middle of a state change. An
// operator has to look at the ledger by hand.
type ReconciliationAlert struct {
	IncidentID string   `json:"incident_id"`
	Kind       string   `json:"kind"`
	Op         string   `json:"op"`
	SessionID  string   `json:"session_id"`
	BuyerName  string   `json:"buyer_name"`
	Receipt    string   `json:"receipt"`
	Seats      []string `json:"seats,omitempty"`
	Error      string   `json:"error"`
	OccurredAt string   `json:"occurred_at"`
}
