package price

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("price quote not found")
	ErrInvalidResult = errors.New("invalid oracle result")
	ErrOutOfRange    = errors.New("oracle price out of range")
)

// Table: price_quotes, one row per oracle callback.
type Quote struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Pair        string    `gorm:"column:pair;size:32;not null;index:idx_price_quotes_pair" json:"pair"`
	Price       int64     `gorm:"column:price;not null" json:"price"`
	RawResult   string    `gorm:"column:raw_result;size:64" json:"raw_result,omitempty"`
	SubmittedBy string    `gorm:"column:submitted_by;size:64;not null" json:"submitted_by"`
	ReceivedAt  time.Time `gorm:"column:received_at;autoCreateTime" json:"received_at"`
}

func (Quote) TableName() string { return "price_quotes" }
