package receipt

import "github.com/shopspring/decimal"

// Draft is a validated payment receipt as submitted by the form, before it is numbered
type Draft struct {
	ClientName      string          `json:"clientName" validate:"required"`
	ClientEmail     string          `json:"clientEmail" validate:"omitempty,email"`
	ClientAddress   string          `json:"clientAddress"`
	TripDescription string          `json:"tripDescription" validate:"required"`
	TripMonth       string          `json:"tripMonth"`
	PaxCount        string          `json:"paxCount"`
	TripInclusions  string          `json:"tripInclusions"`
	TotalTripValue  decimal.Decimal `json:"totalTripValue" validate:"gt=0"`
	AmountPaid      decimal.Decimal `json:"amountPaid" validate:"gte=0"`
	GeneralDetails  string          `json:"generalDetails"`
}

// Receipt is a finalized payment receipt. It is never mutated after assembly.
type Receipt struct {
	Draft
	ReceiptNumber string `json:"receiptNumber"`
	ReceiptDate   string `json:"receiptDate"` // ISO 8601
}

// BalanceDue is the amount still owed on the trip
func (r *Receipt) BalanceDue() decimal.Decimal {
	return r.TotalTripValue.Sub(r.AmountPaid)
}
