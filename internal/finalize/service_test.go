package finalize_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mbruckner/vinetrack/internal/document"
	"github.com/mbruckner/vinetrack/internal/finalize"
	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

func int64Ptr(v int64) *int64 { return &v }

func fixedNow() time.Time {
	return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
}

func completeInvoice() settings.Invoice {
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
	}
}

func eligibleProduct() product.Product {
	return product.Product{
		ASIN:      "B0TEST1",
		Name:      "Kaffeemühle",
		ETV:       2000,
		FairValue: int64Ptr(3500),
		OrderDate: fiscaldate.New(2024, time.January, 10),
		Usage:     product.UsageWithdrawn,
	}
}

func newService(t *testing.T) (*finalize.Service, *finalize.MockLedger, *document.MockRenderer) {
	t.Helper()

	ctrl := gomock.NewController(t)
	ledger := finalize.NewMockLedger(ctrl)
	renderer := document.NewMockRenderer(ctrl)

	svc := finalize.NewService(ledger, renderer, slog.Default(), fixedNow)

	return svc, ledger, renderer
}

func TestFinalize_IncompleteSenderRejectedBeforeAnyMutation(t *testing.T) {
	svc, _, _ := newService(t)

	inv := completeInvoice()
	inv.Sender.VATID = ""

	// No expectations are registered: any ledger or renderer call fails
	// the test.
	_, err := svc.Finalize(context.Background(), "B0TEST1", settings.Fiscal{}, inv)
	assert.ErrorIs(t, err, finalize.ErrSenderIncomplete)
}

func TestFinalize_PreconditionFailures(t *testing.T) {
	type testCase struct {
		name    string
		product product.Product
		fiscal  settings.Fiscal
		wantErr error
	}

	minorFiscal := settings.Fiscal{MinorValueActive: true, MinorValueLimit: 1190}

	finalized := eligibleProduct()
	finalized.Finalized = true
	finalized.InvoiceNumber = "VINE-2024-0001"

	cancelled := eligibleProduct()
	cancelled.Usage = product.UsageCancelled

	minor := eligibleProduct()
	minor.ETV = 500

	tests := []testCase{
		{name: "AlreadyFinalized", product: finalized, wantErr: finalize.ErrAlreadyFinalized},
		{name: "Cancelled", product: cancelled, wantErr: finalize.ErrCancelled},
		{name: "MinorValue", product: minor, fiscal: minorFiscal, wantErr: finalize.ErrMinorValue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, ledger, _ := newService(t)

			ledger.EXPECT().Get("B0TEST1").Return(tc.product, true)

			_, err := svc.Finalize(context.Background(), "B0TEST1", tc.fiscal, completeInvoice())
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestFinalize_UnknownProduct(t *testing.T) {
	svc, ledger, _ := newService(t)

	ledger.EXPECT().Get("B0GONE").Return(product.Product{}, false)

	_, err := svc.Finalize(context.Background(), "B0GONE", settings.Fiscal{}, completeInvoice())
	assert.ErrorIs(t, err, finalize.ErrNotFound)
}

func TestFinalize_SuccessSynced(t *testing.T) {
	svc, ledger, renderer := newService(t)
	p := eligibleProduct()

	ledger.EXPECT().Get("B0TEST1").Return(p, true)
	ledger.EXPECT().All().Return([]product.Product{p})

	renderer.EXPECT().
		Render(gomock.Any(), "VINE-2024-0001", gomock.Any(), gomock.Nil()).
		Return("belege/VINE-2024-0001.txt", nil)

	ledger.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, updated product.Product) (product.Product, error) {
			assert.True(t, updated.Finalized)
			assert.Equal(t, "VINE-2024-0001", updated.InvoiceNumber)

			updated.LastUpdateTime = fixedNow().Unix()

			return updated, nil
		})

	ledger.EXPECT().HasCredential().Return(true)
	ledger.EXPECT().PushOne(gomock.Any(), gomock.Any()).Return(nil)

	result, err := svc.Finalize(context.Background(), "B0TEST1", settings.Fiscal{}, completeInvoice())
	require.NoError(t, err)

	assert.Equal(t, finalize.StateSynced, result.State)
	assert.Equal(t, "VINE-2024-0001", result.InvoiceNumber)
	assert.Equal(t, "belege/VINE-2024-0001.txt", result.ReceiptPath)
	assert.Equal(t, []string{"B0TEST1"}, result.ASINs)
}

func TestFinalize_PushFailureLeavesLocalFinalized(t *testing.T) {
	svc, ledger, renderer := newService(t)
	p := eligibleProduct()

	ledger.EXPECT().Get("B0TEST1").Return(p, true)
	ledger.EXPECT().All().Return([]product.Product{p})
	renderer.EXPECT().Render(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("belege/x.txt", nil)
	ledger.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, updated product.Product) (product.Product, error) {
			return updated, nil
		})
	ledger.EXPECT().HasCredential().Return(true)
	ledger.EXPECT().PushOne(gomock.Any(), gomock.Any()).Return(errors.New("server unreachable"))

	result, err := svc.Finalize(context.Background(), "B0TEST1", settings.Fiscal{}, completeInvoice())
	require.NoError(t, err)

	assert.Equal(t, finalize.StateFinalizedLocally, result.State)
	assert.Contains(t, result.Message, "remote push failed")
}

func TestFinalize_RenderFailureLeavesRecordUntouched(t *testing.T) {
	svc, ledger, renderer := newService(t)
	p := eligibleProduct()

	ledger.EXPECT().Get("B0TEST1").Return(p, true)
	ledger.EXPECT().All().Return([]product.Product{p})
	renderer.EXPECT().Render(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("disk full"))

	// No Upsert expectation: the record must not be mutated.
	_, err := svc.Finalize(context.Background(), "B0TEST1", settings.Fiscal{}, completeInvoice())
	require.Error(t, err)
}

func TestFinalizeBatch_SharedNumberFromOldestProduct(t *testing.T) {
	svc, ledger, renderer := newService(t)

	older := eligibleProduct()

	newer := eligibleProduct()
	newer.ASIN = "B0TEST2"
	newer.Name = "Wasserkocher"
	newer.OrderDate = fiscaldate.New(2024, time.February, 5)

	ledger.EXPECT().Get("B0TEST2").Return(newer, true)
	ledger.EXPECT().Get("B0TEST1").Return(older, true)
	ledger.EXPECT().All().Return([]product.Product{older, newer})

	renderer.EXPECT().
		Render(gomock.Any(), "VINE-2024-0001", gomock.Any(), gomock.Nil()).
		Return("belege/VINE-2024-0001.txt", nil)

	ledger.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, updated product.Product) (product.Product, error) {
			assert.True(t, updated.Finalized)
			assert.Equal(t, "VINE-2024-0001", updated.InvoiceNumber)
			return updated, nil
		}).Times(2)

	ledger.EXPECT().HasCredential().Return(true)
	ledger.EXPECT().PushOne(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	result, err := svc.FinalizeBatch(context.Background(), []string{"B0TEST2", "B0TEST1"}, settings.Fiscal{}, completeInvoice())
	require.NoError(t, err)

	assert.Equal(t, finalize.StateSynced, result.State)
	assert.Equal(t, "VINE-2024-0001", result.InvoiceNumber)
	assert.Equal(t, []string{"B0TEST1", "B0TEST2"}, result.ASINs)
}

func TestFinalizeBatch_Empty(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.FinalizeBatch(context.Background(), nil, settings.Fiscal{}, completeInvoice())
	assert.ErrorIs(t, err, finalize.ErrEmptyBatch)
}

func TestRequiresConfirmation(t *testing.T) {
	base := eligibleProduct()
	base.Finalized = true
	base.InvoiceNumber = "VINE-2024-0001"

	type testCase struct {
		name   string
		mutate func(p *product.Product)
		want   bool
	}

	tests := []testCase{
		{name: "NoChange", mutate: func(*product.Product) {}, want: false},
		{name: "OverrideValueSet", mutate: func(p *product.Product) { p.OverrideFairValue = int64Ptr(1500) }, want: true},
		{name: "OverrideReasonChanged", mutate: func(p *product.Product) { p.OverrideReason = "defekt geliefert" }, want: true},
		{name: "CancelledFlipped", mutate: func(p *product.Product) { p.Usage = product.UsageCancelled }, want: true},
		{name: "DefectiveFlipped", mutate: func(p *product.Product) { p.Defective = true }, want: true},
		{name: "HarmlessEdit", mutate: func(p *product.Product) { p.BuyerAddress = "Musterweg 2" }, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			updated := base.Clone()
			tc.mutate(&updated)

			assert.Equal(t, tc.want, finalize.RequiresConfirmation(base, updated))
		})
	}
}

func TestRequiresConfirmation_NotFinalizedNeverRequires(t *testing.T) {
	old := eligibleProduct()

	updated := old.Clone()
	updated.OverrideFairValue = int64Ptr(100)
	updated.Usage = product.UsageCancelled

	assert.False(t, finalize.RequiresConfirmation(old, updated))
}

func TestUpdateWithGuard(t *testing.T) {
	t.Run("UnconfirmedBookedEditRejected", func(t *testing.T) {
		svc, ledger, _ := newService(t)

		old := eligibleProduct()
		old.Finalized = true
		old.InvoiceNumber = "VINE-2024-0001"

		ledger.EXPECT().Get("B0TEST1").Return(old, true)

		updated := old.Clone()
		updated.Defective = true

		_, err := svc.UpdateWithGuard(context.Background(), updated, false)
		assert.ErrorIs(t, err, finalize.ErrConfirmationRequired)
	})

	t.Run("ConfirmedEditApplies", func(t *testing.T) {
		svc, ledger, _ := newService(t)

		old := eligibleProduct()
		old.Finalized = true
		old.InvoiceNumber = "VINE-2024-0001"

		ledger.EXPECT().Get("B0TEST1").Return(old, true)
		ledger.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p product.Product) (product.Product, error) {
				return p, nil
			})
		ledger.EXPECT().HasCredential().Return(false)

		updated := old.Clone()
		updated.Defective = true

		saved, err := svc.UpdateWithGuard(context.Background(), updated, true)
		require.NoError(t, err)
		assert.True(t, saved.Defective)
	})

	t.Run("FinalizedFlagNotEditable", func(t *testing.T) {
		svc, ledger, _ := newService(t)

		old := eligibleProduct()
		old.Finalized = true
		old.InvoiceNumber = "VINE-2024-0001"

		ledger.EXPECT().Get("B0TEST1").Return(old, true)
		ledger.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p product.Product) (product.Product, error) {
				return p, nil
			})
		ledger.EXPECT().HasCredential().Return(false)

		updated := old.Clone()
		updated.Finalized = false
		updated.InvoiceNumber = ""

		saved, err := svc.UpdateWithGuard(context.Background(), updated, false)
		require.NoError(t, err)
		assert.True(t, saved.Finalized)
		assert.Equal(t, "VINE-2024-0001", saved.InvoiceNumber)
	})
}

func TestFinalize_ValuationDocumentAttachedToReceipt(t *testing.T) {
	svc, ledger, renderer := newService(t)

	p := eligibleProduct()
	p.ValuationDocURL = "https://example.com/gutachten.pdf"

	ledger.EXPECT().Get("B0TEST1").Return(p, true)
	ledger.EXPECT().All().Return([]product.Product{p})

	renderer.EXPECT().
		Render(gomock.Any(), "VINE-2024-0001", gomock.Any(), []string{"https://example.com/gutachten.pdf"}).
		Return("belege/VINE-2024-0001.txt", nil)

	ledger.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, updated product.Product) (product.Product, error) {
			return updated, nil
		})
	ledger.EXPECT().HasCredential().Return(false)

	_, err := svc.Finalize(context.Background(), "B0TEST1", settings.Fiscal{}, completeInvoice())
	require.NoError(t, err)
}

func TestFinalizeBatch_CollectsValuationDocuments(t *testing.T) {
	svc, ledger, renderer := newService(t)

	withDoc := eligibleProduct()
	withDoc.ValuationDocURL = "https://example.com/gutachten.pdf"

	withoutDoc := eligibleProduct()
	withoutDoc.ASIN = "B0TEST2"
	withoutDoc.OrderDate = fiscaldate.New(2024, time.February, 5)

	ledger.EXPECT().Get("B0TEST1").Return(withDoc, true)
	ledger.EXPECT().Get("B0TEST2").Return(withoutDoc, true)
	ledger.EXPECT().All().Return([]product.Product{withDoc, withoutDoc})

	renderer.EXPECT().
		Render(gomock.Any(), "VINE-2024-0001", gomock.Any(), []string{"https://example.com/gutachten.pdf"}).
		Return("belege/VINE-2024-0001.txt", nil)

	ledger.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, updated product.Product) (product.Product, error) {
			return updated, nil
		}).Times(2)
	ledger.EXPECT().HasCredential().Return(false)

	_, err := svc.FinalizeBatch(context.Background(), []string{"B0TEST1", "B0TEST2"}, settings.Fiscal{}, completeInvoice())
	require.NoError(t, err)
}

func TestProposedWindow(t *testing.T) {
	svc, ledger, _ := newService(t)

	oldest := eligibleProduct()

	newer := eligibleProduct()
	newer.ASIN = "B0TEST2"
	newer.OrderDate = fiscaldate.New(2024, time.February, 5)

	booked := eligibleProduct()
	booked.ASIN = "B0OLD"
	booked.OrderDate = fiscaldate.New(2023, time.November, 2)
	booked.Finalized = true
	booked.InvoiceNumber = "VINE-2023-0001"

	cancelled := eligibleProduct()
	cancelled.ASIN = "B0GONE"
	cancelled.OrderDate = fiscaldate.New(2023, time.December, 24)
	cancelled.Usage = product.UsageCancelled

	ledger.EXPECT().All().Return([]product.Product{newer, booked, cancelled, oldest})

	start, end, ok := svc.ProposedWindow(settings.Fiscal{})
	require.True(t, ok)

	assert.Equal(t, fiscaldate.New(2024, time.January, 10), start)
	assert.Equal(t, fiscaldate.New(2024, time.March, 31), end)
}

func TestProposedWindow_NoEligibleProducts(t *testing.T) {
	svc, ledger, _ := newService(t)

	booked := eligibleProduct()
	booked.Finalized = true
	booked.InvoiceNumber = "VINE-2024-0001"

	ledger.EXPECT().All().Return([]product.Product{booked})

	_, _, ok := svc.ProposedWindow(settings.Fiscal{})
	assert.False(t, ok)
}
