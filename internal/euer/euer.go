// Package euer computes the yearly cash-basis profit/loss statement
// (Einnahmenüberschussrechnung) from the product ledger, the free-standing
// expenses and the fiscal settings.
//
// Two mutually exclusive methods interpret the same ledger events
// differently:
//
//   - Value basis (legacy): a product kept in inventory, used in the
//     business, disposed of or sold books its value as income and as a
//     matching asset expense in the order year; a privately withdrawn
//     product books its value as income in the withdrawal year with no
//     matching expense.
//   - ETV in/out: every product books its ETV as income and as fixed-asset
//     expense in the order year (net zero on acquisition); a private
//     withdrawal additionally books the fair value as income in the
//     withdrawal year.
//
// Cancelled products and minor-value products are excluded identically from
// both methods, as is income from external sales, which is always booked in
// the year of the sale at the sale price.
package euer

import (
	"github.com/mbruckner/vinetrack/internal/expense"
	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

// Report is the yearly breakdown. All amounts are cents.
type Report struct {
	Year           int  `json:"year"`
	MethodETVInOut bool `json:"methodETVInOut"`
	FairValueBasis bool `json:"fairValueBasis"`

	BaseIncome       int64 `json:"baseIncome"`
	WithdrawalIncome int64 `json:"withdrawalIncome"`
	SaleIncome       int64 `json:"saleIncome"`

	FixedAssetExpense   int64 `json:"fixedAssetExpense"`
	CurrentAssetExpense int64 `json:"currentAssetExpense"`
	HomeOfficeFlat      int64 `json:"homeOfficeFlat"`
	AdditionalExpenses  int64 `json:"additionalExpenses"`

	TotalIncome  int64 `json:"totalIncome"`
	TotalExpense int64 `json:"totalExpense"`
	Profit       int64 `json:"profit"`
}

// Compute aggregates the ledger into the report for one calendar year.
func Compute(products []product.Product, expenses []expense.Expense, fiscal settings.Fiscal, year int) Report {
	r := Report{
		Year:           year,
		MethodETVInOut: fiscal.MethodETVInOut,
		FairValueBasis: fiscal.UseFairValueForIncome,
		HomeOfficeFlat: fiscal.HomeOfficeFlat,
	}

	delayDays := fiscal.DelayDays()

	for _, p := range products {
		if p.Usage == product.UsageCancelled {
			continue
		}

		if p.MinorValue(fiscal.MinorValueActive, fiscal.MinorValueLimit) {
			continue
		}

		if fiscal.MethodETVInOut {
			computeETVInOut(&r, p, delayDays)
		} else {
			computeValueBasis(&r, p, fiscal, delayDays)
		}

		// External sale income is booked in the sale year under both
		// methods.
		if p.Usage == product.UsageSold && p.SalePrice != nil && p.SaleDate != nil && p.SaleDate.Year == year {
			r.SaleIncome += *p.SalePrice
		}
	}

	for _, e := range expenses {
		if e.Date.Year == year {
			r.AdditionalExpenses += e.Amount
		}
	}

	r.TotalIncome = r.BaseIncome + r.WithdrawalIncome + r.SaleIncome
	r.TotalExpense = r.FixedAssetExpense + r.CurrentAssetExpense + r.HomeOfficeFlat + r.AdditionalExpenses
	r.Profit = r.TotalIncome - r.TotalExpense

	return r
}

func computeValueBasis(r *Report, p product.Product, fiscal settings.Fiscal, delayDays int) {
	value := p.ETV
	if fiscal.UseFairValueForIncome {
		value = p.EffectiveFairValue()
	}

	switch p.Usage {
	case product.UsageInventory, product.UsageBusinessUse, product.UsageDisposed, product.UsageSold:
		if p.OrderDate.Year != r.Year {
			return
		}

		r.BaseIncome += value

		if p.Usage == product.UsageBusinessUse {
			r.FixedAssetExpense += value
		} else {
			r.CurrentAssetExpense += value
		}
	default:
		if !p.DeemedWithdrawn() {
			return
		}

		wd := p.EffectiveWithdrawalDate(delayDays)
		if wd != nil && wd.Year == r.Year {
			r.WithdrawalIncome += value
		}
	}
}

func computeETVInOut(r *Report, p product.Product, delayDays int) {
	if p.OrderDate.Year == r.Year {
		r.BaseIncome += p.ETV
		r.FixedAssetExpense += p.ETV
	}

	if !p.DeemedWithdrawn() {
		return
	}

	wd := p.EffectiveWithdrawalDate(delayDays)
	if wd != nil && wd.Year == r.Year {
		r.WithdrawalIncome += p.EffectiveFairValue()
	}
}
