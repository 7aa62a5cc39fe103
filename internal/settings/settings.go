// Package settings holds the process-wide fiscal configuration and the
// sender/recipient data printed on receipts. Both blobs persist through the
// local key-value store and are passed explicitly into the core engines;
// nothing in the core reads ambient global state.
package settings

import "github.com/mbruckner/vinetrack/internal/fiscaldate"

// Fiscal configures the computation and numbering engines. All amounts are
// cents.
type Fiscal struct {
	// UseFairValueForIncome and MethodETVInOut select the accounting
	// method. They are mutually exclusive; ApplyMethodExclusivity keeps
	// them that way.
	UseFairValueForIncome bool `json:"useFairValueForIncome"`
	MethodETVInOut        bool `json:"methodETVInOut"`

	MinorValueActive bool  `json:"minorValueActive"`
	MinorValueLimit  int64 `json:"minorValueLimit"`

	HomeOfficeFlat int64 `json:"homeOfficeFlat"`

	// WithdrawalDelay is the default span between order date and deemed
	// private withdrawal, e.g. "0d", "14d", "180d".
	WithdrawalDelay string `json:"withdrawalDelay"`

	HideZeroETV     bool `json:"hideZeroETV"`
	UseAltValuation bool `json:"useAltValuation"`
}

// DefaultFiscal mirrors the limits German practice suggests: 11.90 EUR
// minor-value threshold and the 1260 EUR home-office flat rate.
func DefaultFiscal() Fiscal {
	return Fiscal{
		MinorValueLimit: 1190,
		HomeOfficeFlat:  126000,
		WithdrawalDelay: "0d",
	}
}

// DelayDays parses the configured withdrawal delay, falling back to zero
// days when the stored value is malformed.
func (f Fiscal) DelayDays() int {
	days, err := fiscaldate.ParseDelay(f.WithdrawalDelay)
	if err != nil {
		return 0
	}

	return days
}

// ApplyMethodExclusivity resolves the accounting-method pair after an edit:
// the flag that was switched on wins and clears the other. If both are set
// without a discernible transition, the ETV in/out method wins.
func ApplyMethodExclusivity(old, updated Fiscal) Fiscal {
	if !updated.UseFairValueForIncome || !updated.MethodETVInOut {
		return updated
	}

	switch {
	case !old.MethodETVInOut:
		updated.UseFairValueForIncome = false
	case !old.UseFairValueForIncome:
		updated.MethodETVInOut = false
	default:
		updated.UseFairValueForIncome = false
	}

	return updated
}

// Party is one side of the generated receipt.
type Party struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	VATID        string `json:"vatId"`
}

// Invoice carries the address blocks for receipt generation. Sender fields
// are a finalization precondition; SmallBusiness switches the VAT footer to
// the § 19 UStG wording.
type Invoice struct {
	Sender        Party `json:"sender"`
	Recipient     Party `json:"recipient"`
	SmallBusiness bool  `json:"smallBusiness"`
}

// SenderComplete reports whether the sender block satisfies the
// finalization precondition: name, both address lines and the VAT id.
func (i Invoice) SenderComplete() bool {
	s := i.Sender
	return s.Name != "" && s.AddressLine1 != "" && s.AddressLine2 != "" && s.VATID != ""
}
