// Package document generates the German pro-forma receipt ("Beleg") text
// that finalization archives, and defines the rendering collaborator that
// turns the text into a downloadable file.
package document

import (
	"fmt"
	"strings"

	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/money"
	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

// MinorValueNotice is returned instead of a receipt for minor-value
// products, which are never invoiced.
const MinorValueNotice = "Streuartikel: Für dieses Produkt wird kein Beleg generiert."

// BelegText renders the single-product receipt. The invoice number is the
// caller's responsibility: either the frozen number of a finalized record or
// the current proposal.
func BelegText(p product.Product, inv settings.Invoice, fiscal settings.Fiscal, invoiceNumber string, issued fiscaldate.Date) string {
	if p.MinorValue(fiscal.MinorValueActive, fiscal.MinorValueLimit) && !p.Finalized {
		return MinorValueNotice
	}

	if invoiceNumber == "" {
		invoiceNumber = "N/A"
	}

	value := p.EffectiveFairValue()

	var b strings.Builder

	b.WriteString("Proformarechnung\n")
	fmt.Fprintf(&b, "Rechnungsnummer: %s\n", invoiceNumber)
	fmt.Fprintf(&b, "Belegdatum: %s\n", issued.German())
	fmt.Fprintf(&b, "Leistungsdatum: %s\n\n", p.OrderDate.String())

	writeParties(&b, inv)

	b.WriteString("Produkt:\n")
	fmt.Fprintf(&b, "%s (ASIN: %s)\n\n", p.Name, p.ASIN)

	b.WriteString("Leistung:\n")
	b.WriteString("Schreiben einer Rezension für das genannte Produkt im Rahmen des Amazon Vine Programms.\n\n")

	if p.DeemedWithdrawn() {
		if wd := p.EffectiveWithdrawalDate(fiscal.DelayDays()); wd != nil {
			fmt.Fprintf(&b, "Zeitpunkt der Privatentnahme nach Testabschluss: %s\n", wd.German())
		}
	}

	b.WriteString("\n")

	if p.OverrideFairValue != nil && p.OverrideReason != "" {
		fmt.Fprintf(&b, "Begründung für abweichenden Wert: %s\n\n", p.OverrideReason)
	}

	fmt.Fprintf(&b, "Wert der Leistung: %s EUR\n\n", money.FormatEuro(value))
	fmt.Fprintf(&b, "Gesamtbetrag: %s EUR\n\n", money.FormatEuro(value))

	writeFooter(&b, inv)

	return b.String()
}

// BulkBelegText renders the shared receipt for a batch finalization. Each
// line item uses the configured income basis (fair value or ETV).
func BulkBelegText(products []product.Product, inv settings.Invoice, fiscal settings.Fiscal, invoiceNumber string, periodStart, periodEnd, issued fiscaldate.Date) string {
	var b strings.Builder

	b.WriteString("Proformarechnung (Sammelbeleg)\n")
	fmt.Fprintf(&b, "Rechnungsnummer: %s\n", invoiceNumber)
	fmt.Fprintf(&b, "Belegdatum: %s\n", issued.German())
	fmt.Fprintf(&b, "Leistungszeitraum: %s - %s\n\n", periodStart.String(), periodEnd.String())

	writeParties(&b, inv)

	b.WriteString("Leistung:\n")
	b.WriteString("Schreiben von Rezensionen für die nachfolgend genannten Produkte im Rahmen des Amazon Vine Programms.\n\n")

	b.WriteString("Abgerechnete Produkte:\n")

	var total int64

	for _, p := range products {
		value := p.ETV
		if fiscal.UseFairValueForIncome {
			value = p.EffectiveFairValue()
		}

		total += value

		fmt.Fprintf(&b, "- Produkt: %s (ASIN: %s)\n", truncate(p.Name, 50), p.ASIN)
		fmt.Fprintf(&b, "  Bestelldatum: %s, Einzelwert: %s EUR\n", p.OrderDate.String(), money.FormatEuro(value))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Gesamtwert der erbrachten Leistungen: %s EUR\n\n", money.FormatEuro(total))
	fmt.Fprintf(&b, "Gesamtbetrag: %s EUR\n\n", money.FormatEuro(total))

	writeFooter(&b, inv)

	return b.String()
}

func writeParties(b *strings.Builder, inv settings.Invoice) {
	b.WriteString("Von:\n")
	fmt.Fprintf(b, "%s\n%s\n%s\n", orPlaceholder(inv.Sender.Name, "(Ihr Name/Firma)"),
		orPlaceholder(inv.Sender.AddressLine1, "(Ihre Straße Nr.)"),
		orPlaceholder(inv.Sender.AddressLine2, "(Ihre PLZ Ort)"))

	if inv.Sender.VATID != "" {
		fmt.Fprintf(b, "USt-IdNr.: %s\n", inv.Sender.VATID)
	}

	b.WriteString("\nAn (Leistungsempfänger):\n")
	fmt.Fprintf(b, "%s\n%s\n%s\n", inv.Recipient.Name, inv.Recipient.AddressLine1, inv.Recipient.AddressLine2)
	fmt.Fprintf(b, "USt-IdNr.: %s\n\n", inv.Recipient.VATID)
}

func writeFooter(b *strings.Builder, inv settings.Invoice) {
	if inv.SmallBusiness {
		b.WriteString("Gemäß § 19 UStG wird keine Umsatzsteuer berechnet.\n")
	} else {
		b.WriteString("Steuerschuldnerschaft des Leistungsempfängers (Reverse Charge).\n")
	}

	b.WriteString("\n--------------------------------------\n")
	b.WriteString("Dieser Beleg dient zur Dokumentation im Rahmen des Amazon Vine Programms.\n")
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}

	return s
}

// truncate shortens s to at most n runes. Cutting on runes keeps umlauts at
// the boundary intact.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n]) + "..."
}
