package gormdb

import (
	"context"
	"errors"

	loanDomain "kidot-ledger/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// Tx runs fn in a db transaction, passing a repo bound to the tx
func (r *LoanRepository) Tx(ctx context.Context, fn func(repo loanDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LoanRepository{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loanDomain.ErrNotFound
	}
	return err
}

func (r *LoanRepository) ListLoanIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&loanDomain.Loan{}).Order("seq ASC").Pluck("loan_id", &ids).Error
	return ids, err
}

func (r *LoanRepository) List(ctx context.Context) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	err := r.db.WithContext(ctx).Order("seq ASC").Find(&out).Error
	return out, err
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	if err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out).Error; err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetLenders(ctx context.Context, loanID uint64) ([]loanDomain.Lender, error) {
	out := []loanDomain.Lender{}
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *LoanRepository) AppendLender(ctx context.Context, ln *loanDomain.Lender) error {
	return r.db.WithContext(ctx).Create(ln).Error
}

// SetLenders replaces the whole lender list of a loan.
func (r *LoanRepository) SetLenders(ctx context.Context, loanID uint64, lenders []loanDomain.Lender) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("loan_id = ?", loanID).Delete(&loanDomain.Lender{}).Error; err != nil {
			return err
		}
		if len(lenders) == 0 {
			return nil
		}
		rows := make([]loanDomain.Lender, len(lenders))
		for i, ln := range lenders {
			rows[i] = loanDomain.Lender{LoanID: loanID, LenderAccount: ln.LenderAccount, LendAmount: ln.LendAmount}
		}
		return tx.Create(&rows).Error
	})
}

func (r *LoanRepository) GetTotals(ctx context.Context) (*loanDomain.Totals, error) {
	var out loanDomain.Totals
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(loanDomain.Totals{ID: loanDomain.TotalsRowID}).
		FirstOrCreate(&out).Error
	return &out, err
}

func (r *LoanRepository) SaveTotals(ctx context.Context, t *loanDomain.Totals) error {
	t.ID = loanDomain.TotalsRowID
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *LoanRepository) Purge(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("1 = 1").Delete(&loanDomain.Lender{}).Error; err != nil {
		return err
	}
	if err := db.Where("1 = 1").Delete(&loanDomain.Loan{}).Error; err != nil {
		return err
	}
	return db.Save(&loanDomain.Totals{ID: loanDomain.TotalsRowID}).Error
}
