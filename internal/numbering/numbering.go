// Package numbering derives the proposed invoice number for every eligible,
// not-yet-finalized product. Numbers already frozen on finalized records are
// reserved forever; proposals are a pure function of the ledger and the
// fiscal settings, so re-running on an unchanged ledger yields identical
// results.
package numbering

import (
	"fmt"
	"sort"

	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

// Format renders an invoice number for a year and sequence counter.
func Format(year, counter int) string {
	return fmt.Sprintf("VINE-%d-%04d", year, counter)
}

// Propose maps ASIN to proposed invoice number for every candidate product.
// Candidates are partitioned by order year; within a year they are ordered
// by order date, ties broken by ASIN, so the assignment is a total order and
// deterministic across runs. The counter walks from 1 and skips any value a
// finalized product has permanently claimed.
func Propose(products []product.Product, fiscal settings.Fiscal) map[string]string {
	byYear := make(map[int][]product.Product)
	reserved := make(map[int]map[string]bool)

	for _, p := range products {
		year := p.OrderDate.Year

		if p.Finalized {
			if p.InvoiceNumber != "" {
				if reserved[year] == nil {
					reserved[year] = make(map[string]bool)
				}

				reserved[year][p.InvoiceNumber] = true
			}

			continue
		}

		if p.Usage == product.UsageCancelled {
			continue
		}

		if p.MinorValue(fiscal.MinorValueActive, fiscal.MinorValueLimit) {
			continue
		}

		byYear[year] = append(byYear[year], p)
	}

	proposals := make(map[string]string)

	for year, candidates := range byYear {
		sort.Slice(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if a.OrderDate != b.OrderDate {
				return a.OrderDate.Before(b.OrderDate)
			}

			return a.ASIN < b.ASIN
		})

		counter := 1

		for _, p := range candidates {
			for reserved[year][Format(year, counter)] {
				counter++
			}

			proposals[p.ASIN] = Format(year, counter)
			counter++
		}
	}

	return proposals
}
