package remote

import (
	"encoding/json"
	"log/slog"

	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/money"
	"github.com/mbruckner/vinetrack/internal/product"
)

// entry is a single record as the remote store transports it. The product
// fields travel as a JSON string in Value; only the key and the conflict
// timestamp are first-class.
type entry struct {
	ASIN           string `json:"ASIN"`
	LastUpdateTime int64  `json:"last_update_time"`
	Value          string `json:"value"`
}

// pushEntry is the upload form of entry. The server compares Timestamp
// against its stored last_update_time to decide insert, update or skip.
type pushEntry struct {
	ASIN      string `json:"ASIN"`
	Timestamp int64  `json:"timestamp"`
	Value     string `json:"value"`
}

// productValue is the schema inside entry.Value. Monetary fields are euro
// amounts, dates are DD/MM/YYYY (order) or DD.MM.YYYY (sale, withdrawal).
type productValue struct {
	Name             string   `json:"name"`
	OrderNumber      string   `json:"ordernumber"`
	Date             string   `json:"date"`
	ETV              float64  `json:"etv"`
	Teilwert         *float64 `json:"teilwert"`
	PDF              string   `json:"pdf,omitempty"`
	MyTeilwert       *float64 `json:"myTeilwert,omitempty"`
	MyTeilwertReason string   `json:"myTeilwertReason,omitempty"`
	UsageStatus      []string `json:"usageStatus"`
	SalePrice        *float64 `json:"salePrice,omitempty"`
	SaleDate         string   `json:"saleDate,omitempty"`
	BuyerAddress     string   `json:"buyerAddress,omitempty"`
	WithdrawalDate   string   `json:"privatentnahmeDate,omitempty"`
	Finalized        int      `json:"festgeschrieben,omitempty"`
	InvoiceNumber    string   `json:"rechnungsNummer,omitempty"`
}

// decodeEntry turns a wire entry into a ledger product. A corrupted value
// payload yields a minimal placeholder record instead of an error so one
// bad row never aborts a whole fetch.
func decodeEntry(e entry, logger *slog.Logger) product.Product {
	var v productValue
	if err := json.Unmarshal([]byte(e.Value), &v); err != nil {
		logger.Warn("corrupted remote record", "asin", e.ASIN, "error", err)

		return product.Product{
			ASIN:           e.ASIN,
			Name:           "Error: Corrupted Data",
			OrderNumber:    "N/A",
			OrderDate:      fiscaldate.Sentinel(),
			LastUpdateTime: e.LastUpdateTime,
		}
	}

	p := product.Product{
		ASIN:            e.ASIN,
		Name:            orDefault(v.Name, "N/A"),
		OrderNumber:     orDefault(v.OrderNumber, "N/A"),
		ETV:             money.FromEuros(v.ETV),
		OverrideReason:  v.MyTeilwertReason,
		BuyerAddress:    v.BuyerAddress,
		ValuationDocURL: v.PDF,
		Finalized:       v.Finalized == 1,
		InvoiceNumber:   v.InvoiceNumber,
		LastUpdateTime:  e.LastUpdateTime,
	}

	orderDate, err := fiscaldate.ParseOrderDate(v.Date)
	if err != nil {
		logger.Warn("unparseable order date", "asin", e.ASIN, "raw", v.Date)
		orderDate = fiscaldate.Sentinel()
	}

	p.OrderDate = orderDate

	if v.Teilwert != nil {
		cents := money.FromEuros(*v.Teilwert)
		p.FairValue = &cents
	}

	if v.MyTeilwert != nil {
		cents := money.FromEuros(*v.MyTeilwert)
		p.OverrideFairValue = &cents
	}

	if v.SalePrice != nil {
		cents := money.FromEuros(*v.SalePrice)
		p.SalePrice = &cents
	}

	if v.SaleDate != "" {
		if d, err := fiscaldate.ParseGermanDate(v.SaleDate); err == nil {
			p.SaleDate = &d
		} else {
			logger.Warn("unparseable sale date", "asin", e.ASIN, "raw", v.SaleDate)
		}
	}

	if v.WithdrawalDate != "" {
		if d, err := fiscaldate.ParseGermanDate(v.WithdrawalDate); err == nil {
			p.WithdrawalDate = &d
		} else {
			logger.Warn("unparseable withdrawal date", "asin", e.ASIN, "raw", v.WithdrawalDate)
		}
	}

	p.Usage, p.Defective = product.SplitStatusList(v.UsageStatus)

	return p
}

// encodeProduct produces the upload entry for a product. Encoding is the
// exact inverse of decodeEntry so a round trip preserves every field.
func encodeProduct(p product.Product) (pushEntry, error) {
	v := productValue{
		Name:             p.Name,
		OrderNumber:      p.OrderNumber,
		Date:             p.OrderDate.String(),
		ETV:              money.ToEuros(p.ETV),
		PDF:              p.ValuationDocURL,
		MyTeilwertReason: p.OverrideReason,
		UsageStatus:      product.JoinStatusList(p.Usage, p.Defective),
		BuyerAddress:     p.BuyerAddress,
		InvoiceNumber:    p.InvoiceNumber,
	}

	if p.FairValue != nil {
		euros := money.ToEuros(*p.FairValue)
		v.Teilwert = &euros
	}

	if p.OverrideFairValue != nil {
		euros := money.ToEuros(*p.OverrideFairValue)
		v.MyTeilwert = &euros
	}

	if p.SalePrice != nil {
		euros := money.ToEuros(*p.SalePrice)
		v.SalePrice = &euros
	}

	if p.SaleDate != nil {
		v.SaleDate = p.SaleDate.German()
	}

	if p.WithdrawalDate != nil {
		v.WithdrawalDate = p.WithdrawalDate.German()
	}

	if p.Finalized {
		v.Finalized = 1
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return pushEntry{}, err
	}

	return pushEntry{
		ASIN:      p.ASIN,
		Timestamp: p.LastUpdateTime,
		Value:     string(raw),
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
