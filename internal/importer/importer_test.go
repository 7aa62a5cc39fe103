package importer_test

import (
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/importer"
	"github.com/mbruckner/vinetrack/internal/product"
)

func TestParse_ProductArray(t *testing.T) {
	input := `[
		{"ASIN":"B0TEST1","name":"Kaffeemühle","ordernumber":"028-123","date":"10/01/2024",
		 "etv":11.9,"teilwert":"35,50","usageStatus":["Privatentnahme"],
		 "last_update_time":1700000000,"festgeschrieben":1,"rechnungsNummer":"VINE-2024-0001"},
		{"ASIN":"B0TEST2","name":"Akku","ordernumber":"028-456","date":"05/02/2024",
		 "etv":"4.10","usageStatus":[]}
	]`

	products, err := importer.Parse(strings.NewReader(input), slog.Default())
	require.NoError(t, err)
	require.Len(t, products, 2)

	p := products[0]
	assert.Equal(t, "B0TEST1", p.ASIN)
	assert.Equal(t, "Kaffeemühle", p.Name)
	assert.Equal(t, fiscaldate.New(2024, time.January, 10), p.OrderDate)
	assert.Equal(t, int64(1190), p.ETV)
	require.NotNil(t, p.FairValue)
	assert.Equal(t, int64(3550), *p.FairValue)
	assert.Equal(t, product.UsageWithdrawn, p.Usage)
	assert.True(t, p.Finalized)
	assert.Equal(t, "VINE-2024-0001", p.InvoiceNumber)
	assert.Equal(t, int64(1700000000), p.LastUpdateTime)

	assert.Equal(t, int64(410), products[1].ETV)
	assert.Nil(t, products[1].FairValue)
}

func TestParse_LegacyKeyedObject(t *testing.T) {
	input := `{
		"ASIN_B0TEST1": "{\"name\":\"Kaffeemühle\",\"ordernumber\":\"028-123\",\"date\":\"10/01/2024\",\"etv\":11.9,\"usageStatus\":[\"defekt\"]}",
		"ASIN_B0TEST2": "{\"name\":\"Akku\",\"ordernumber\":\"028-456\",\"date\":\"05/02/2024\",\"etv\":4.1,\"usageStatus\":[]}",
		"unrelated_key": "ignored"
	}`

	products, err := importer.Parse(strings.NewReader(input), slog.Default())
	require.NoError(t, err)
	require.Len(t, products, 2)

	sort.Slice(products, func(i, j int) bool { return products[i].ASIN < products[j].ASIN })

	assert.Equal(t, "B0TEST1", products[0].ASIN)
	assert.Equal(t, product.UsageNone, products[0].Usage)
	assert.True(t, products[0].Defective)
	assert.Equal(t, "B0TEST2", products[1].ASIN)
}

func TestParse_LegacyUnreadableEntrySkipped(t *testing.T) {
	input := `{
		"ASIN_B0GOOD": "{\"name\":\"Akku\",\"ordernumber\":\"1\",\"date\":\"01/02/2024\",\"etv\":5.0,\"usageStatus\":[]}",
		"ASIN_B0BAD": "{not json"
	}`

	products, err := importer.Parse(strings.NewReader(input), slog.Default())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "B0GOOD", products[0].ASIN)
}

func TestParse_InvalidFormat(t *testing.T) {
	for _, input := range []string{`42`, `"just a string"`, `not json at all`} {
		_, err := importer.Parse(strings.NewReader(input), slog.Default())
		assert.ErrorIs(t, err, importer.ErrInvalidFormat, "input %q", input)
	}
}

func TestParse_RecordWithoutASINSkipped(t *testing.T) {
	input := `[
		{"name":"Nameless","ordernumber":"1","date":"01/02/2024","etv":5.0},
		{"ASIN":"B0KEEP","name":"Akku","ordernumber":"2","date":"01/02/2024","etv":5.0}
	]`

	products, err := importer.Parse(strings.NewReader(input), slog.Default())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "B0KEEP", products[0].ASIN)
}

func TestParse_MalformedFieldsDegrade(t *testing.T) {
	input := `[{"ASIN":"B0TEST1","name":"","ordernumber":"","date":"kein Datum",
		"etv":"kaputt","teilwert":null,"saleDate":"31.02.2024","usageStatus":["unbekannt"]}]`

	products, err := importer.Parse(strings.NewReader(input), slog.Default())
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "N/A", p.Name)
	assert.Equal(t, "N/A", p.OrderNumber)
	assert.Equal(t, fiscaldate.Sentinel(), p.OrderDate)
	assert.Equal(t, int64(0), p.ETV)
	assert.Nil(t, p.FairValue)
	assert.Nil(t, p.SaleDate)
	assert.Equal(t, product.UsageNone, p.Usage)
	assert.False(t, p.Defective)
}

func TestParse_Windows1252Input(t *testing.T) {
	// "Kaffeemühle" with a latin-1 ü byte.
	input := []byte(`[{"ASIN":"B0TEST1","name":"Kaffeem`)
	input = append(input, 0xFC)
	input = append(input, []byte(`hle","ordernumber":"1","date":"10/01/2024","etv":5.0,"usageStatus":[]}]`)...)

	products, err := importer.Parse(strings.NewReader(string(input)), slog.Default())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Kaffeemühle", products[0].Name)
}
