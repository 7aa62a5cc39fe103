package settings

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	fiscalKey  = "settings/fiscal"
	invoiceKey = "settings/invoice"
)

//go:generate mockgen -source=service.go -destination=store_mock.go -package=settings
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Service loads and saves the two settings blobs, applying defaults when
// nothing is stored yet and the method-exclusivity rule on every fiscal
// update.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Fiscal(ctx context.Context) (Fiscal, error) {
	raw, ok, err := s.store.Get(ctx, fiscalKey)
	if err != nil {
		return Fiscal{}, fmt.Errorf("loading fiscal settings: %w", err)
	}

	if !ok {
		return DefaultFiscal(), nil
	}

	var f Fiscal
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fiscal{}, fmt.Errorf("decoding fiscal settings: %w", err)
	}

	return f, nil
}

// UpdateFiscal persists the given settings, resolving the accounting-method
// pair against the previously stored state, and returns what was stored.
func (s *Service) UpdateFiscal(ctx context.Context, updated Fiscal) (Fiscal, error) {
	old, err := s.Fiscal(ctx)
	if err != nil {
		return Fiscal{}, err
	}

	resolved := ApplyMethodExclusivity(old, updated)

	raw, err := json.Marshal(resolved)
	if err != nil {
		return Fiscal{}, fmt.Errorf("encoding fiscal settings: %w", err)
	}

	if err := s.store.Set(ctx, fiscalKey, raw); err != nil {
		return Fiscal{}, fmt.Errorf("saving fiscal settings: %w", err)
	}

	return resolved, nil
}

func (s *Service) Invoice(ctx context.Context) (Invoice, error) {
	raw, ok, err := s.store.Get(ctx, invoiceKey)
	if err != nil {
		return Invoice{}, fmt.Errorf("loading invoice settings: %w", err)
	}

	if !ok {
		return Invoice{}, nil
	}

	var inv Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return Invoice{}, fmt.Errorf("decoding invoice settings: %w", err)
	}

	return inv, nil
}

func (s *Service) UpdateInvoice(ctx context.Context, inv Invoice) error {
	raw, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encoding invoice settings: %w", err)
	}

	if err := s.store.Set(ctx, invoiceKey, raw); err != nil {
		return fmt.Errorf("saving invoice settings: %w", err)
	}

	return nil
}
