// Package export produces backup files of the ledger. The snapshot is the
// same JSON array layout the importer reads, so an exported file can be
// imported back without loss. The archive additionally bundles the
// generated receipts.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/mbruckner/vinetrack/internal/money"
	"github.com/mbruckner/vinetrack/internal/product"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=export

// Ledger is the read slice of the product ledger the exporter needs.
type Ledger interface {
	All() []product.Product
}

// Service writes ledger backups.
type Service struct {
	ledger      Ledger
	receiptsDir string
}

func NewService(ledger Ledger, receiptsDir string) *Service {
	return &Service{
		ledger:      ledger,
		receiptsDir: receiptsDir,
	}
}

// record is one product in the snapshot file. Field names and formats match
// the import layout: euro floats, DD/MM/YYYY order dates, DD.MM.YYYY German
// dates.
type record struct {
	ASIN             string   `json:"ASIN"`
	Name             string   `json:"name"`
	OrderNumber      string   `json:"ordernumber"`
	Date             string   `json:"date"`
	ETV              float64  `json:"etv"`
	Teilwert         *float64 `json:"teilwert,omitempty"`
	PDF              string   `json:"pdf,omitempty"`
	MyTeilwert       *float64 `json:"myTeilwert,omitempty"`
	MyTeilwertReason string   `json:"myTeilwertReason,omitempty"`
	UsageStatus      []string `json:"usageStatus"`
	SalePrice        *float64 `json:"salePrice,omitempty"`
	SaleDate         string   `json:"saleDate,omitempty"`
	BuyerAddress     string   `json:"buyerAddress,omitempty"`
	WithdrawalDate   string   `json:"privatentnahmeDate,omitempty"`
	LastUpdateTime   int64    `json:"last_update_time"`
	Finalized        int      `json:"festgeschrieben,omitempty"`
	InvoiceNumber    string   `json:"rechnungsNummer,omitempty"`
}

// Snapshot writes all products, finalized and hidden ones included, as a
// JSON array.
func (s *Service) Snapshot(w io.Writer) error {
	products := s.ledger.All()

	records := make([]record, 0, len(products))
	for _, p := range products {
		records = append(records, toRecord(p))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	return nil
}

// Archive writes a zip with the snapshot and every receipt file. A missing
// receipts directory simply results in an archive without receipts.
func (s *Service) Archive(w io.Writer) error {
	zw := zip.NewWriter(w)

	snapshot, err := zw.Create("products.json")
	if err != nil {
		return fmt.Errorf("creating snapshot entry: %w", err)
	}

	if err := s.Snapshot(snapshot); err != nil {
		return err
	}

	if err := s.addReceipts(zw); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	return nil
}

func (s *Service) addReceipts(zw *zip.Writer) error {
	entries, err := os.ReadDir(s.receiptsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("reading receipts directory: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	for _, name := range names {
		f, err := zw.Create("belege/" + name)
		if err != nil {
			return fmt.Errorf("creating receipt entry %s: %w", name, err)
		}

		data, err := os.ReadFile(filepath.Join(s.receiptsDir, name))
		if err != nil {
			return fmt.Errorf("reading receipt %s: %w", name, err)
		}

		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing receipt entry %s: %w", name, err)
		}
	}

	return nil
}

func toRecord(p product.Product) record {
	r := record{
		ASIN:             p.ASIN,
		Name:             p.Name,
		OrderNumber:      p.OrderNumber,
		Date:             p.OrderDate.String(),
		ETV:              money.ToEuros(p.ETV),
		PDF:              p.ValuationDocURL,
		MyTeilwertReason: p.OverrideReason,
		UsageStatus:      product.JoinStatusList(p.Usage, p.Defective),
		BuyerAddress:     p.BuyerAddress,
		LastUpdateTime:   p.LastUpdateTime,
		InvoiceNumber:    p.InvoiceNumber,
	}

	if p.FairValue != nil {
		euros := money.ToEuros(*p.FairValue)
		r.Teilwert = &euros
	}

	if p.OverrideFairValue != nil {
		euros := money.ToEuros(*p.OverrideFairValue)
		r.MyTeilwert = &euros
	}

	if p.SalePrice != nil {
		euros := money.ToEuros(*p.SalePrice)
		r.SalePrice = &euros
	}

	if p.SaleDate != nil {
		r.SaleDate = p.SaleDate.German()
	}

	if p.WithdrawalDate != nil {
		r.WithdrawalDate = p.WithdrawalDate.German()
	}

	if p.Finalized {
		r.Finalized = 1
	}

	return r
}
