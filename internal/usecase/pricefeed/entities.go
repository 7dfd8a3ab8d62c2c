package pricefeed

import "time"

// SubmitInput carries either a plain price or the oracle callback result
// (hex SCALE-encoded little-endian i128). Exactly one must be set.
type SubmitInput struct {
	Price  *int64
	Result string
}

type QuoteDTO struct {
	Pair        string    `json:"pair"`
	Price       int64     `json:"price"`
	RawResult   string    `json:"raw_result,omitempty"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}
