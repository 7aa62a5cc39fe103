package ledger

import (
	"sort"

	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

// Reconcile merges a local and a remote product set at whole-record
// granularity, keyed by ASIN. The remote set seeds the result; a local
// record overwrites it when no remote counterpart exists or when the local
// LastUpdateTime is greater than or equal to the remote one. Ties favor
// local deliberately: a tied timestamp means the active user just made the
// edit. The result is sorted by ASIN, which makes Reconcile idempotent and
// its output independent of map iteration order.
func Reconcile(local, remote []product.Product) []product.Product {
	byASIN := make(map[string]product.Product, len(remote))

	for _, r := range remote {
		byASIN[r.ASIN] = r
	}

	for _, l := range local {
		r, ok := byASIN[l.ASIN]
		if !ok || l.LastUpdateTime >= r.LastUpdateTime {
			byASIN[l.ASIN] = l
		}
	}

	merged := make([]product.Product, 0, len(byASIN))
	for _, p := range byASIN {
		merged = append(merged, p)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].ASIN < merged[j].ASIN })

	return merged
}

// ApplyFilters produces the view the rest of the system works on. With
// HideZeroETV active, zero-value records are dropped. With UseAltValuation
// active, each record's fair value is replaced by the alternate source's
// entry for its ASIN; records the source does not know lose their fair
// value entirely rather than keeping a stale one.
func ApplyFilters(products []product.Product, fiscal settings.Fiscal, altValues map[string]int64) []product.Product {
	out := make([]product.Product, 0, len(products))

	for _, p := range products {
		if fiscal.HideZeroETV && p.ETV == 0 {
			continue
		}

		if fiscal.UseAltValuation {
			p = p.Clone()

			if v, ok := altValues[p.ASIN]; ok {
				p.FairValue = &v
			} else {
				p.FairValue = nil
			}
		}

		out = append(out, p)
	}

	return out
}
