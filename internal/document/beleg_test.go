package document_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/mbruckner/vinetrack/internal/document"
	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

func int64Ptr(v int64) *int64 { return &v }

func testInvoice() settings.Invoice {
	return settings.Invoice{
		Sender: settings.Party{
			Name:         "Max Mustermann",
			AddressLine1: "Musterstr. 1",
			AddressLine2: "12345 Musterstadt",
			VATID:        "DE123456789",
		},
		Recipient: settings.Party{
			Name:         "Amazon EU S.a r.l.",
			AddressLine1: "38 avenue John F. Kennedy",
			AddressLine2: "L-1855 Luxemburg",
			VATID:        "LU20260743",
		},
		SmallBusiness: true,
	}
}

func testProduct() product.Product {
	return product.Product{
		ASIN:      "B0TEST1",
		Name:      "Kaffeemühle",
		OrderDate: fiscaldate.New(2024, time.January, 10),
		ETV:       2000,
		FairValue: int64Ptr(3500),
		Usage:     product.UsageWithdrawn,
	}
}

func TestBelegText_SingleReceipt(t *testing.T) {
	issued := fiscaldate.New(2024, time.July, 1)

	text := document.BelegText(testProduct(), testInvoice(), settings.Fiscal{WithdrawalDelay: "0d"}, "VINE-2024-0001", issued)

	assert.Contains(t, text, "Proformarechnung")
	assert.Contains(t, text, "Rechnungsnummer: VINE-2024-0001")
	assert.Contains(t, text, "Belegdatum: 01.07.2024")
	assert.Contains(t, text, "Leistungsdatum: 10/01/2024")
	assert.Contains(t, text, "Kaffeemühle (ASIN: B0TEST1)")
	assert.Contains(t, text, "Max Mustermann")
	assert.Contains(t, text, "USt-IdNr.: DE123456789")
	assert.Contains(t, text, "Zeitpunkt der Privatentnahme nach Testabschluss: 10.01.2024")
	assert.Contains(t, text, "Wert der Leistung: 35.00 EUR")
	assert.Contains(t, text, "Gemäß § 19 UStG wird keine Umsatzsteuer berechnet.")
}

func TestBelegText_ReverseChargeFooter(t *testing.T) {
	inv := testInvoice()
	inv.SmallBusiness = false

	text := document.BelegText(testProduct(), inv, settings.Fiscal{}, "VINE-2024-0001", fiscaldate.New(2024, time.July, 1))

	assert.Contains(t, text, "Steuerschuldnerschaft des Leistungsempfängers (Reverse Charge).")
	assert.NotContains(t, text, "§ 19 UStG")
}

func TestBelegText_OverrideReason(t *testing.T) {
	p := testProduct()
	p.OverrideFairValue = int64Ptr(1500)
	p.OverrideReason = "starke Gebrauchsspuren"

	text := document.BelegText(p, testInvoice(), settings.Fiscal{}, "VINE-2024-0001", fiscaldate.New(2024, time.July, 1))

	assert.Contains(t, text, "Begründung für abweichenden Wert: starke Gebrauchsspuren")
	assert.Contains(t, text, "Wert der Leistung: 15.00 EUR")
}

func TestBelegText_MinorValueNotice(t *testing.T) {
	p := testProduct()
	p.ETV = 500

	fiscal := settings.Fiscal{MinorValueActive: true, MinorValueLimit: 1190}

	text := document.BelegText(p, testInvoice(), fiscal, "VINE-2024-0001", fiscaldate.New(2024, time.July, 1))
	assert.Equal(t, document.MinorValueNotice, text)
}

func TestBelegText_FinalizedMinorValueStillRendersReceipt(t *testing.T) {
	// A record finalized before the threshold was raised keeps its receipt.
	p := testProduct()
	p.ETV = 500
	p.Finalized = true
	p.InvoiceNumber = "VINE-2024-0007"

	fiscal := settings.Fiscal{MinorValueActive: true, MinorValueLimit: 1190}

	text := document.BelegText(p, testInvoice(), fiscal, p.InvoiceNumber, fiscaldate.New(2024, time.July, 1))
	assert.Contains(t, text, "Rechnungsnummer: VINE-2024-0007")
}

func TestBulkBelegText(t *testing.T) {
	second := testProduct()
	second.ASIN = "B0TEST2"
	second.Name = "Wasserkocher"
	second.OrderDate = fiscaldate.New(2024, time.February, 5)
	second.FairValue = int64Ptr(1500)

	fiscal := settings.Fiscal{UseFairValueForIncome: true}

	text := document.BulkBelegText(
		[]product.Product{testProduct(), second},
		testInvoice(),
		fiscal,
		"VINE-2024-0003",
		fiscaldate.New(2024, time.January, 10),
		fiscaldate.New(2024, time.February, 5),
		fiscaldate.New(2024, time.July, 1),
	)

	assert.Contains(t, text, "Proformarechnung (Sammelbeleg)")
	assert.Contains(t, text, "Leistungszeitraum: 10/01/2024 - 05/02/2024")
	assert.Contains(t, text, "Kaffeemühle (ASIN: B0TEST1)")
	assert.Contains(t, text, "Wasserkocher (ASIN: B0TEST2)")
	assert.Contains(t, text, "Gesamtwert der erbrachten Leistungen: 50.00 EUR")
}

func TestBulkBelegText_ETVBasis(t *testing.T) {
	text := document.BulkBelegText(
		[]product.Product{testProduct()},
		testInvoice(),
		settings.Fiscal{},
		"VINE-2024-0003",
		fiscaldate.New(2024, time.January, 10),
		fiscaldate.New(2024, time.January, 10),
		fiscaldate.New(2024, time.July, 1),
	)

	assert.Contains(t, text, "Gesamtbetrag: 20.00 EUR")
}

func TestBulkBelegText_LongUmlautNameTruncatesOnRunes(t *testing.T) {
	p := testProduct()
	p.Name = strings.Repeat("ü", 60)

	text := document.BulkBelegText(
		[]product.Product{p},
		testInvoice(),
		settings.Fiscal{},
		"VINE-2024-0003",
		fiscaldate.New(2024, time.January, 10),
		fiscaldate.New(2024, time.January, 10),
		fiscaldate.New(2024, time.July, 1),
	)

	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, strings.Repeat("ü", 50)+"...")
}
