package product

import (
	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

// productResponse is the API view of a ledger record. Amounts are cents,
// dates ISO-8601.
type productResponse struct {
	ASIN              string           `json:"asin"`
	Name              string           `json:"name"`
	OrderNumber       string           `json:"orderNumber"`
	OrderDate         fiscaldate.Date  `json:"orderDate"`
	ETV               int64            `json:"etv"`
	FairValue         *int64           `json:"fairValue,omitempty"`
	OverrideFairValue *int64           `json:"overrideFairValue,omitempty"`
	OverrideReason    string           `json:"overrideReason,omitempty"`
	Usage             product.Usage    `json:"usage"`
	Defective         bool             `json:"defective"`
	SalePrice         *int64           `json:"salePrice,omitempty"`
	SaleDate          *fiscaldate.Date `json:"saleDate,omitempty"`
	BuyerAddress      string           `json:"buyerAddress,omitempty"`
	WithdrawalDate    *fiscaldate.Date `json:"withdrawalDate,omitempty"`
	ValuationDocURL   string           `json:"valuationDocUrl,omitempty"`
	Finalized         bool             `json:"finalized"`
	InvoiceNumber     string           `json:"invoiceNumber,omitempty"`
	LastUpdateTime    int64            `json:"lastUpdateTime"`

	// Derived fields the UI renders directly.
	EffectiveFairValue int64  `json:"effectiveFairValue"`
	MinorValue         bool   `json:"minorValue"`
	ProposedNumber     string `json:"proposedInvoiceNumber,omitempty"`
}

func toResponse(p product.Product, fiscal settings.Fiscal, proposals map[string]string) productResponse {
	resp := productResponse{
		ASIN:              p.ASIN,
		Name:              p.Name,
		OrderNumber:       p.OrderNumber,
		OrderDate:         p.OrderDate,
		ETV:               p.ETV,
		FairValue:         p.FairValue,
		OverrideFairValue: p.OverrideFairValue,
		OverrideReason:    p.OverrideReason,
		Usage:             p.Usage,
		Defective:         p.Defective,
		SalePrice:         p.SalePrice,
		SaleDate:          p.SaleDate,
		BuyerAddress:      p.BuyerAddress,
		WithdrawalDate:    p.WithdrawalDate,
		ValuationDocURL:   p.ValuationDocURL,
		Finalized:         p.Finalized,
		InvoiceNumber:     p.InvoiceNumber,
		LastUpdateTime:    p.LastUpdateTime,

		EffectiveFairValue: p.EffectiveFairValue(),
		MinorValue:         p.MinorValue(fiscal.MinorValueActive, fiscal.MinorValueLimit),
	}

	if !p.Finalized {
		resp.ProposedNumber = proposals[p.ASIN]
	}

	return resp
}

func toResponseList(products []product.Product, fiscal settings.Fiscal, proposals map[string]string) []productResponse {
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toResponse(p, fiscal, proposals)
	}

	return resp
}
