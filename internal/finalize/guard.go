package finalize

import (
	"context"
	"fmt"

	"github.com/mbruckner/vinetrack/internal/product"
)

// RequiresConfirmation reports whether applying updated over old touches a
// booked field of a finalized record. Booked fields are the value override,
// its reason, the cancellation status and the defect marker; changing any
// of them after finalization alters what the issued receipt documented.
func RequiresConfirmation(old, updated product.Product) bool {
	if !old.Finalized {
		return false
	}

	if !int64PtrEqual(old.OverrideFairValue, updated.OverrideFairValue) {
		return true
	}

	if old.OverrideReason != updated.OverrideReason {
		return true
	}

	if (old.Usage == product.UsageCancelled) != (updated.Usage == product.UsageCancelled) {
		return true
	}

	if old.Defective != updated.Defective {
		return true
	}

	return false
}

// UpdateWithGuard applies a product edit, enforcing the confirmation guard
// for finalized records. The finalized flag and the frozen invoice number
// themselves are never editable through this path.
func (s *Service) UpdateWithGuard(ctx context.Context, updated product.Product, confirmed bool) (product.Product, error) {
	old, ok := s.ledger.Get(updated.ASIN)
	if !ok {
		return product.Product{}, fmt.Errorf("%w: %s", ErrNotFound, updated.ASIN)
	}

	updated.Finalized = old.Finalized
	updated.InvoiceNumber = old.InvoiceNumber

	if RequiresConfirmation(old, updated) && !confirmed {
		return product.Product{}, ErrConfirmationRequired
	}

	saved, err := s.ledger.Upsert(ctx, updated)
	if err != nil {
		return product.Product{}, err
	}

	if s.ledger.HasCredential() {
		if err := s.ledger.PushOne(ctx, saved); err != nil {
			s.logger.Warn("product updated locally, remote push failed", "asin", saved.ASIN, "error", err)
		}
	}

	return saved, nil
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
