package settings_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mbruckner/vinetrack/internal/settings"
)

func TestApplyMethodExclusivity(t *testing.T) {
	type testCase struct {
		name    string
		old     settings.Fiscal
		updated settings.Fiscal
		want    settings.Fiscal
	}

	tests := []testCase{
		{
			name:    "EnablingETVInOutClearsFairValue",
			old:     settings.Fiscal{UseFairValueForIncome: true},
			updated: settings.Fiscal{UseFairValueForIncome: true, MethodETVInOut: true},
			want:    settings.Fiscal{MethodETVInOut: true},
		},
		{
			name:    "EnablingFairValueClearsETVInOut",
			old:     settings.Fiscal{MethodETVInOut: true},
			updated: settings.Fiscal{UseFairValueForIncome: true, MethodETVInOut: true},
			want:    settings.Fiscal{UseFairValueForIncome: true},
		},
		{
			name:    "SingleFlagPassesThrough",
			old:     settings.Fiscal{},
			updated: settings.Fiscal{MethodETVInOut: true},
			want:    settings.Fiscal{MethodETVInOut: true},
		},
		{
			name:    "BothOffPassesThrough",
			old:     settings.Fiscal{UseFairValueForIncome: true},
			updated: settings.Fiscal{},
			want:    settings.Fiscal{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, settings.ApplyMethodExclusivity(tc.old, tc.updated))
		})
	}
}

func TestDefaultFiscal(t *testing.T) {
	def := settings.DefaultFiscal()

	assert.Equal(t, int64(1190), def.MinorValueLimit)
	assert.Equal(t, int64(126000), def.HomeOfficeFlat)
	assert.Equal(t, 0, def.DelayDays())
	assert.False(t, def.MethodETVInOut)
	assert.False(t, def.UseFairValueForIncome)
}

func TestFiscal_DelayDays_MalformedFallsBackToZero(t *testing.T) {
	f := settings.Fiscal{WithdrawalDelay: "soon"}
	assert.Equal(t, 0, f.DelayDays())
}

func TestInvoice_SenderComplete(t *testing.T) {
	inv := settings.Invoice{
		Sender: settings.Party{
			Name:         "Max Mustermann",
			AddressLine1: "Musterstr. 1",
			AddressLine2: "12345 Musterstadt",
			VATID:        "DE123456789",
		},
	}
	assert.True(t, inv.SenderComplete())

	inv.Sender.VATID = ""
	assert.False(t, inv.SenderComplete())
}

func TestService_Fiscal_DefaultsWhenUnset(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := settings.NewMockStore(ctrl)

	store.EXPECT().Get(gomock.Any(), "settings/fiscal").Return(nil, false, nil)

	svc := settings.NewService(store)

	fiscal, err := svc.Fiscal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultFiscal(), fiscal)
}

func TestService_UpdateFiscal_AppliesExclusivityAgainstStoredState(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := settings.NewMockStore(ctrl)

	stored, err := json.Marshal(settings.Fiscal{UseFairValueForIncome: true})
	require.NoError(t, err)

	store.EXPECT().Get(gomock.Any(), "settings/fiscal").Return(stored, true, nil)

	var saved []byte

	store.EXPECT().
		Set(gomock.Any(), "settings/fiscal", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value []byte) error {
			saved = value
			return nil
		})

	svc := settings.NewService(store)

	updated, err := svc.UpdateFiscal(context.Background(), settings.Fiscal{
		UseFairValueForIncome: true,
		MethodETVInOut:        true,
	})
	require.NoError(t, err)

	assert.True(t, updated.MethodETVInOut)
	assert.False(t, updated.UseFairValueForIncome)

	var persisted settings.Fiscal
	require.NoError(t, json.Unmarshal(saved, &persisted))
	assert.Equal(t, updated, persisted)
}
