// Package importer parses uploaded ledger export files. Two layouts exist:
// the current one is a JSON array of product records, the legacy one an
// object whose "ASIN_<asin>" keys map to JSON-stringified records. Records
// with malformed fields degrade to defaults instead of failing the file.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mbruckner/vinetrack/internal/encoding"
	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/money"
	"github.com/mbruckner/vinetrack/internal/product"
)

const legacyKeyPrefix = "ASIN_"

// ErrInvalidFormat means the file is neither a product array nor a legacy
// keyed object.
var ErrInvalidFormat = errors.New("file must contain a product array or an object with ASIN_ keys")

// Parse reads a ledger export and returns its products. The input may be in
// any encoding NewUTF8Reader understands. Records without an ASIN and
// legacy entries with unreadable values are skipped, not fatal.
func Parse(r io.Reader, logger *slog.Logger) ([]product.Product, error) {
	utf8r, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("preparing reader: %w", err)
	}

	raw, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var records []record
	if err := json.Unmarshal(raw, &records); err == nil {
		return fromRecords(records, logger), nil
	}

	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, ErrInvalidFormat
	}

	return fromLegacy(legacy, logger), nil
}

func fromRecords(records []record, logger *slog.Logger) []product.Product {
	products := make([]product.Product, 0, len(records))

	for i, rec := range records {
		if rec.ASIN == "" {
			logger.Warn("skipping record without ASIN", "index", i)
			continue
		}

		products = append(products, rec.toProduct(logger))
	}

	return products
}

func fromLegacy(entries map[string]json.RawMessage, logger *slog.Logger) []product.Product {
	products := make([]product.Product, 0, len(entries))

	for key, rawValue := range entries {
		if !strings.HasPrefix(key, legacyKeyPrefix) {
			continue
		}

		var encoded string
		if err := json.Unmarshal(rawValue, &encoded); err != nil {
			logger.Warn("legacy entry value is not a JSON string, skipping", "key", key)
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(encoded), &rec); err != nil {
			logger.Warn("unreadable legacy entry, skipping", "key", key, "error", err)
			continue
		}

		rec.ASIN = strings.TrimPrefix(key, legacyKeyPrefix)
		products = append(products, rec.toProduct(logger))
	}

	return products
}

// record mirrors one export entry. Monetary fields may be numbers or
// numeric strings depending on which tool produced the file.
type record struct {
	ASIN             string     `json:"ASIN"`
	Name             string     `json:"name"`
	OrderNumber      string     `json:"ordernumber"`
	Date             string     `json:"date"`
	ETV              euroAmount `json:"etv"`
	Teilwert         euroAmount `json:"teilwert"`
	PDF              string     `json:"pdf"`
	MyTeilwert       euroAmount `json:"myTeilwert"`
	MyTeilwertReason string     `json:"myTeilwertReason"`
	UsageStatus      []string   `json:"usageStatus"`
	SalePrice        euroAmount `json:"salePrice"`
	SaleDate         string     `json:"saleDate"`
	BuyerAddress     string     `json:"buyerAddress"`
	WithdrawalDate   string     `json:"privatentnahmeDate"`
	LastUpdateTime   int64      `json:"last_update_time"`
	Finalized        int        `json:"festgeschrieben"`
	InvoiceNumber    string     `json:"rechnungsNummer"`
}

func (r record) toProduct(logger *slog.Logger) product.Product {
	p := product.Product{
		ASIN:            r.ASIN,
		Name:            orDefault(r.Name, "N/A"),
		OrderNumber:     orDefault(r.OrderNumber, "N/A"),
		ETV:             r.ETV.cents,
		OverrideReason:  r.MyTeilwertReason,
		BuyerAddress:    r.BuyerAddress,
		ValuationDocURL: r.PDF,
		Finalized:       r.Finalized == 1,
		InvoiceNumber:   r.InvoiceNumber,
		LastUpdateTime:  r.LastUpdateTime,
	}

	orderDate, err := fiscaldate.ParseOrderDate(r.Date)
	if err != nil {
		logger.Warn("unparseable order date in import", "asin", r.ASIN, "raw", r.Date)
		orderDate = fiscaldate.Sentinel()
	}

	p.OrderDate = orderDate

	if r.Teilwert.present {
		v := r.Teilwert.cents
		p.FairValue = &v
	}

	if r.MyTeilwert.present {
		v := r.MyTeilwert.cents
		p.OverrideFairValue = &v
	}

	if r.SalePrice.present {
		v := r.SalePrice.cents
		p.SalePrice = &v
	}

	if r.SaleDate != "" {
		if d, err := fiscaldate.ParseGermanDate(r.SaleDate); err == nil {
			p.SaleDate = &d
		} else {
			logger.Warn("unparseable sale date in import", "asin", r.ASIN, "raw", r.SaleDate)
		}
	}

	if r.WithdrawalDate != "" {
		if d, err := fiscaldate.ParseGermanDate(r.WithdrawalDate); err == nil {
			p.WithdrawalDate = &d
		} else {
			logger.Warn("unparseable withdrawal date in import", "asin", r.ASIN, "raw", r.WithdrawalDate)
		}
	}

	p.Usage, p.Defective = product.SplitStatusList(r.UsageStatus)

	return p
}

// euroAmount is a euro value that may arrive as a JSON number, a numeric
// string, null or garbage. Garbage degrades to absent.
type euroAmount struct {
	cents   int64
	present bool
}

func (a *euroAmount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}

	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}

	cents, err := money.ParseEuroString(s)
	if err != nil {
		return nil
	}

	a.cents = cents
	a.present = true

	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
