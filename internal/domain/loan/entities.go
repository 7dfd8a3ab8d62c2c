package loan

import (
	"time"
)

type Status string

// A loan only moves forward: pending → completed → settled.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusSettled   Status = "settled"
)

// Loan is a funding target. Amounts are in mKD$ (milli kilo-dollars).
type Loan struct {
	Seq             uint64     `gorm:"primaryKey;autoIncrement;column:seq" json:"-"`
	LoanID          uint64     `gorm:"column:loan_id;not null;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	LoanAmount      uint64     `gorm:"column:loan_amount;not null" json:"loan_amount"`
	FundedAmount    uint64     `gorm:"column:funded_amount;not null;default:0" json:"funded_amount"`
	PayedBackAmount uint64     `gorm:"column:payed_back_amount;not null;default:0" json:"payed_back_amount"`
	Status          Status     `gorm:"column:status;size:16;not null;default:'pending'" json:"status"`
	SettledAt       *time.Time `gorm:"column:settled_at" json:"settled_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// Lender is one contribution event. Entries from the same account are never merged.
type Lender struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	LoanID        uint64    `gorm:"column:loan_id;not null;index:idx_loan_lenders_loan" json:"loan_id"`
	LenderAccount string    `gorm:"column:lender_account;size:64;not null" json:"lender_account"`
	LendAmount    uint64    `gorm:"column:lend_amount;not null" json:"lend_amount"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Lender) TableName() string { return "loan_lenders" }

// TotalsRowID is the primary key of the single ledger_totals row.
const TotalsRowID uint8 = 1

// Totals are the four global running counters.
type Totals struct {
	ID        uint8     `gorm:"primaryKey;column:id" json:"-"`
	Reserved  uint64    `gorm:"column:reserved;not null;default:0" json:"reserved"`
	Funded    uint64    `gorm:"column:funded;not null;default:0" json:"funded"`
	Staked    uint64    `gorm:"column:staked;not null;default:0" json:"staked"`
	PayedBack uint64    `gorm:"column:payed_back;not null;default:0" json:"payed_back"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Totals) TableName() string { return "ledger_totals" }
