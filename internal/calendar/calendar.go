// Package calendar computes delivery dates for confirmed orders.
package calendar

import "time"

// DefaultCutoffHour is the hour separating same-day from next-day delivery.
const DefaultCutoffHour = 10

// Rule derives a delivery date from a confirmation timestamp.
type Rule struct {
	CutoffHour int
}

// NewRule creates a delivery date rule with the given cutoff hour.
func NewRule(cutoffHour int) *Rule {
	if cutoffHour <= 0 {
		cutoffHour = DefaultCutoffHour
	}
	return &Rule{CutoffHour: cutoffHour}
}

// DeliveryDateFor computes the delivery date for an order confirmed at now.
// Confirmations at or after the cutoff hour ship the next day. A resulting
// Sunday rolls to Monday; a Saturday confirmation at or after cutoff skips
// the whole weekend and lands on Monday.
func (r *Rule) DeliveryDateFor(now time.Time) time.Time {
	delivery := now
	afterCutoff := now.Hour() >= r.CutoffHour

	if afterCutoff {
		delivery = delivery.AddDate(0, 0, 1)
	}

	switch delivery.Weekday() {
	case time.Sunday:
		delivery = delivery.AddDate(0, 0, 1)
	case time.Saturday:
		if afterCutoff {
			delivery = delivery.AddDate(0, 0, 2)
		}
	}

	return time.Date(delivery.Year(), delivery.Month(), delivery.Day(), 0, 0, 0, 0, delivery.Location())
}
