// Package product defines the ledger's central record type.
package product

import (
	"github.com/mbruckner/vinetrack/internal/fiscaldate"
)

// Usage is the mutually exclusive part of a product's classification. The
// remote store models this as a free-form status array; here the exclusive
// group is a single tagged value so that invalid combinations (e.g. sold and
// cancelled at once) cannot be represented. The string values are the wire
// vocabulary of the remote store.
type Usage string

const (
	UsageNone        Usage = ""
	UsageCancelled   Usage = "storniert"
	UsageSold        Usage = "verkauft"
	UsageDisposed    Usage = "entsorgt"
	UsageWithdrawn   Usage = "Privatentnahme"
	UsageInventory   Usage = "Lager"
	UsageBusinessUse Usage = "betriebliche Nutzung"
)

// DefectiveMarker is the wire string for the defective flag, which is
// independent of the exclusive group and may co-occur with any Usage.
const DefectiveMarker = "defekt"

// Valid reports whether u is a known member of the exclusive group.
func (u Usage) Valid() bool {
	switch u {
	case UsageNone, UsageCancelled, UsageSold, UsageDisposed,
		UsageWithdrawn, UsageInventory, UsageBusinessUse:
		return true
	}

	return false
}

// SplitStatusList reduces a wire status array to the tagged usage and the
// defect marker. Unknown strings are ignored; when several usage values
// appear the first valid one wins.
func SplitStatusList(statuses []string) (Usage, bool) {
	usage := UsageNone
	defective := false

	for _, s := range statuses {
		if s == DefectiveMarker {
			defective = true
			continue
		}

		if u := Usage(s); u.Valid() && usage == UsageNone {
			usage = u
		}
	}

	return usage, defective
}

// JoinStatusList is the inverse of SplitStatusList, producing the wire
// status array.
func JoinStatusList(usage Usage, defective bool) []string {
	statuses := []string{}

	if usage != UsageNone {
		statuses = append(statuses, string(usage))
	}

	if defective {
		statuses = append(statuses, DefectiveMarker)
	}

	return statuses
}

// Product is one inventory item received through the review program. ASIN is
// the immutable merge key; LastUpdateTime is the per-record version the
// merge engine compares.
type Product struct {
	ASIN        string
	Name        string
	OrderNumber string
	OrderDate   fiscaldate.Date

	// Valuation, in cents. ETV is the program's estimated tax value.
	// FairValue (Teilwert) is set externally and may be absent;
	// OverrideFairValue is a user-entered replacement with a free-text
	// reason.
	ETV               int64
	FairValue         *int64
	OverrideFairValue *int64
	OverrideReason    string

	Usage     Usage
	Defective bool

	// Sale detail, meaningful only while Usage == UsageSold.
	SalePrice    *int64
	SaleDate     *fiscaldate.Date
	BuyerAddress string

	// WithdrawalDate overrides the computed default withdrawal date.
	WithdrawalDate *fiscaldate.Date

	// ValuationDocURL links an externally hosted valuation document that
	// can be appended to the generated receipt.
	ValuationDocURL string

	// Finalized marks the record as festgeschrieben; once set, the
	// invoice number is permanent.
	Finalized     bool
	InvoiceNumber string

	LastUpdateTime int64
}

// EffectiveFairValue returns the override value if set, else the external
// fair value, else zero cents.
func (p Product) EffectiveFairValue() int64 {
	if p.OverrideFairValue != nil {
		return *p.OverrideFairValue
	}

	if p.FairValue != nil {
		return *p.FairValue
	}

	return 0
}

// MinorValue reports whether the product falls under the minor-value
// ("Streuartikel") rule for the given active limit in cents.
func (p Product) MinorValue(limitActive bool, limitCents int64) bool {
	return limitActive && p.ETV < limitCents
}

// DeemedWithdrawn reports whether the product counts as privately withdrawn
// for fiscal purposes: either explicitly, or unclassified and neither
// defective nor disposed.
func (p Product) DeemedWithdrawn() bool {
	if p.Usage == UsageWithdrawn {
		return true
	}

	return p.Usage == UsageNone && !p.Defective
}

// EffectiveWithdrawalDate resolves the date a withdrawal is booked on: the
// explicit withdrawal date when present, otherwise the order date plus the
// configured delay. Returns nil when the order date itself was unparseable
// (sentinel), since a derived date would be meaningless.
func (p Product) EffectiveWithdrawalDate(delayDays int) *fiscaldate.Date {
	if p.WithdrawalDate != nil {
		d := *p.WithdrawalDate
		return &d
	}

	if p.OrderDate.IsZero() || p.OrderDate.IsSentinel() {
		return nil
	}

	d := p.OrderDate.AddDays(delayDays)

	return &d
}

// Clone returns a deep copy, so callers can mutate a working copy without
// aliasing the ledger's record through the pointer fields.
func (p Product) Clone() Product {
	c := p

	if p.FairValue != nil {
		v := *p.FairValue
		c.FairValue = &v
	}

	if p.OverrideFairValue != nil {
		v := *p.OverrideFairValue
		c.OverrideFairValue = &v
	}

	if p.SalePrice != nil {
		v := *p.SalePrice
		c.SalePrice = &v
	}

	if p.SaleDate != nil {
		v := *p.SaleDate
		c.SaleDate = &v
	}

	if p.WithdrawalDate != nil {
		v := *p.WithdrawalDate
		c.WithdrawalDate = &v
	}

	return c
}
