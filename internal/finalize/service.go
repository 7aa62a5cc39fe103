// Package finalize turns provisional ledger records into immutable booked
// ones: it assigns the frozen invoice number, generates the receipt, flips
// the finalized flag and propagates the change to the remote store.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mbruckner/vinetrack/internal/document"
	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/numbering"
	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

var (
	// ErrSenderIncomplete rejects finalization while the sender block of
	// the invoice settings is missing name, address or VAT id.
	ErrSenderIncomplete = errors.New("sender details incomplete, set name, address and VAT id first")

	// ErrNotFound means the ASIN is not in the ledger.
	ErrNotFound = errors.New("product not found")

	// ErrAlreadyFinalized rejects a second finalization of the same record.
	ErrAlreadyFinalized = errors.New("product is already finalized")

	// ErrMinorValue rejects finalization of products under the minor-value
	// threshold, which are never invoiced.
	ErrMinorValue = errors.New("minor-value product, no receipt is generated")

	// ErrCancelled rejects finalization of cancelled orders.
	ErrCancelled = errors.New("cancelled product cannot be finalized")

	// ErrNoInvoiceNumber means the numbering engine produced no proposal
	// for the product.
	ErrNoInvoiceNumber = errors.New("no invoice number could be resolved")

	// ErrEmptyBatch rejects a bulk finalization with no products.
	ErrEmptyBatch = errors.New("no products selected")

	// ErrConfirmationRequired guards edits to booked fields of a finalized
	// record. The caller must repeat the call with explicit confirmation.
	ErrConfirmationRequired = errors.New("editing a finalized record requires explicit confirmation")
)

// State distinguishes how far a finalization got. Local finalization is
// durable on its own; the remote store catches up on the next sync.
type State string

const (
	StateFinalizedLocally State = "finalized_locally"
	StateSynced           State = "synced"
)

// Result is what a successful finalization reports back.
type Result struct {
	State         State    `json:"state"`
	InvoiceNumber string   `json:"invoiceNumber"`
	ReceiptPath   string   `json:"receiptPath,omitempty"`
	ASINs         []string `json:"asins"`
	Message       string   `json:"message,omitempty"`
}

//go:generate mockgen -source=service.go -destination=service_mock.go -package=finalize

// Ledger is the slice of the product ledger that finalization mutates.
type Ledger interface {
	Get(asin string) (product.Product, bool)
	All() []product.Product
	Upsert(ctx context.Context, p product.Product) (product.Product, error)
	PushOne(ctx context.Context, p product.Product) error
	HasCredential() bool
}

// Service coordinates the finalization sequence. Side effects run in a
// fixed order: receipt generation, local persistence, remote push. There is
// no rollback; an issued receipt cannot be un-issued, so a late failure
// leaves the record finalized locally.
type Service struct {
	ledger   Ledger
	renderer document.Renderer
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(ledger Ledger, renderer document.Renderer, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		ledger:   ledger,
		renderer: renderer,
		logger:   logger,
		now:      now,
	}
}

// Proposals returns the current invoice number proposals for all
// non-finalized eligible products.
func (s *Service) Proposals(fiscal settings.Fiscal) map[string]string {
	return numbering.Propose(s.ledger.All(), fiscal)
}

// Finalize books a single product. Preconditions are checked before any
// mutation; afterwards the sequence is receipt, local write, remote push.
func (s *Service) Finalize(ctx context.Context, asin string, fiscal settings.Fiscal, inv settings.Invoice) (Result, error) {
	if !inv.SenderComplete() {
		return Result{}, ErrSenderIncomplete
	}

	p, ok := s.ledger.Get(asin)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, asin)
	}

	if err := checkEligible(p, fiscal); err != nil {
		return Result{}, err
	}

	number := p.InvoiceNumber
	if number == "" {
		number = numbering.Propose(s.ledger.All(), fiscal)[asin]
	}

	if number == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrNoInvoiceNumber, asin)
	}

	issued := fiscaldate.FromTime(s.now())
	text := document.BelegText(p, inv, fiscal, number, issued)

	path, err := s.renderer.Render(ctx, number, text, attachments(p))
	if err != nil {
		return Result{}, fmt.Errorf("rendering receipt: %w", err)
	}

	p.Finalized = true
	p.InvoiceNumber = number

	updated, err := s.ledger.Upsert(ctx, p)
	if err != nil {
		return Result{}, fmt.Errorf("persisting finalized product: %w", err)
	}

	result := Result{
		State:         StateFinalizedLocally,
		InvoiceNumber: number,
		ReceiptPath:   path,
		ASINs:         []string{asin},
	}

	return s.push(ctx, result, updated), nil
}

// FinalizeBatch books several products under one shared invoice number,
// taken from the oldest product's proposal. The receipt covers the whole
// order-date window.
func (s *Service) FinalizeBatch(ctx context.Context, asins []string, fiscal settings.Fiscal, inv settings.Invoice) (Result, error) {
	if len(asins) == 0 {
		return Result{}, ErrEmptyBatch
	}

	if !inv.SenderComplete() {
		return Result{}, ErrSenderIncomplete
	}

	batch := make([]product.Product, 0, len(asins))

	for _, asin := range asins {
		p, ok := s.ledger.Get(asin)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrNotFound, asin)
		}

		if err := checkEligible(p, fiscal); err != nil {
			return Result{}, fmt.Errorf("%s: %w", asin, err)
		}

		batch = append(batch, p)
	}

	sortByOrderDate(batch)

	oldest := batch[0]
	start := oldest.OrderDate
	end := batch[len(batch)-1].OrderDate

	number := numbering.Propose(s.ledger.All(), fiscal)[oldest.ASIN]
	if number == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrNoInvoiceNumber, oldest.ASIN)
	}

	issued := fiscaldate.FromTime(s.now())
	text := document.BulkBelegText(batch, inv, fiscal, number, start, end, issued)

	path, err := s.renderer.Render(ctx, number, text, attachments(batch...))
	if err != nil {
		return Result{}, fmt.Errorf("rendering receipt: %w", err)
	}

	result := Result{
		State:         StateFinalizedLocally,
		InvoiceNumber: number,
		ReceiptPath:   path,
	}

	updated := make([]product.Product, 0, len(batch))

	for _, p := range batch {
		p.Finalized = true
		p.InvoiceNumber = number

		u, err := s.ledger.Upsert(ctx, p)
		if err != nil {
			result.Message = fmt.Sprintf("persistence failed after %d of %d products: %v", len(updated), len(batch), err)
			return result, nil
		}

		updated = append(updated, u)
		result.ASINs = append(result.ASINs, p.ASIN)
	}

	return s.push(ctx, result, updated...), nil
}

// push uploads the finalized records when a credential is configured. Push
// failure downgrades the result, never the local state.
func (s *Service) push(ctx context.Context, result Result, products ...product.Product) Result {
	if !s.ledger.HasCredential() {
		result.Message = "no remote credential configured, record will sync later"
		return result
	}

	for _, p := range products {
		if err := s.ledger.PushOne(ctx, p); err != nil {
			s.logger.Warn("finalized locally but remote push failed", "asin", p.ASIN, "error", err)
			result.Message = fmt.Sprintf("finalized locally, remote push failed: %v", err)

			return result
		}
	}

	result.State = StateSynced

	return result
}

// ProposedWindow suggests the default reporting window for batch
// finalization: from the oldest eligible order date to the end of that
// date's quarter. ok is false when no eligible product exists.
func (s *Service) ProposedWindow(fiscal settings.Fiscal) (start, end fiscaldate.Date, ok bool) {
	for _, p := range s.ledger.All() {
		if checkEligible(p, fiscal) != nil {
			continue
		}

		if !ok || p.OrderDate.Before(start) {
			start = p.OrderDate
			ok = true
		}
	}

	if !ok {
		return fiscaldate.Date{}, fiscaldate.Date{}, false
	}

	return start, fiscaldate.EndOfQuarter(start), true
}

// attachments collects the externally hosted valuation documents linked to
// the given products, for appending to the receipt.
func attachments(products ...product.Product) []string {
	var links []string

	for _, p := range products {
		if p.ValuationDocURL != "" {
			links = append(links, p.ValuationDocURL)
		}
	}

	return links
}

func checkEligible(p product.Product, fiscal settings.Fiscal) error {
	if p.Finalized {
		return ErrAlreadyFinalized
	}

	if p.Usage == product.UsageCancelled {
		return ErrCancelled
	}

	if p.MinorValue(fiscal.MinorValueActive, fiscal.MinorValueLimit) {
		return ErrMinorValue
	}

	return nil
}

func sortByOrderDate(products []product.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].OrderDate != products[j].OrderDate {
			return products[i].OrderDate.Before(products[j].OrderDate)
		}

		return products[i].ASIN < products[j].ASIN
	})
}
