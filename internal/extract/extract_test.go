package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFencedArray(t *testing.T) {
	raw := "Here is the data you asked for:\n```json\n[{\"barang\": \"Kopi\", \"harga\": 25000}]\n```\nLet me know if you need anything else."

	records, err := Extract(raw, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Kopi", records[0].Get("barang"))
	assert.Equal(t, "25000", records[0].Get("harga"))
}

func TestExtractBareArrayWithProse(t *testing.T) {
	raw := "Sure! [{\"barang\": \"Teh\"}, {\"barang\": \"Roti\"}] hope that helps"

	records, err := Extract(raw, []string{"barang"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Teh", records[0].Get("barang"))
	assert.Equal(t, "Roti", records[1].Get("barang"))
}

func TestExtractSingleObjectWrapped(t *testing.T) {
	raw := "{\"barang\": \"Nasi Goreng\", \"jumlah\": 2}"

	records, err := Extract(raw, []string{"barang", "jumlah"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Nasi Goreng", records[0].Get("barang"))
	assert.Equal(t, "2", records[0].Get("jumlah"))
}

func TestExtractTrailingCommaRepaired(t *testing.T) {
	raw := "```\n[{\"barang\": \"Es Jeruk\", \"harga\": 8000,}, ]\n```"

	records, err := Extract(raw, []string{"barang", "harga"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Es Jeruk", records[0].Get("barang"))
}

func TestExtractRepairIsIdempotent(t *testing.T) {
	clean := "[{\"barang\": \"Sate\"}]"

	first, err := Extract(clean, []string{"barang"})
	require.NoError(t, err)
	second, err := Extract(clean, []string{"barang"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractMissingFieldsAreEmpty(t *testing.T) {
	raw := "[{\"barang\": \"Bakso\"}]"

	records, err := Extract(raw, []string{"barang", "harga", "pajak"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bakso", records[0].Get("barang"))
	assert.Equal(t, "", records[0].Get("harga"))
	assert.Equal(t, "", records[0].Get("pajak"))
}

func TestExtractUnknownFieldsDropped(t *testing.T) {
	raw := "[{\"barang\": \"Mie\", \"catatan\": \"pedas\"}]"

	records, err := Extract(raw, []string{"barang"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mie"}, records[0].Row())
}

func TestExtractNumbersKeepPrecision(t *testing.T) {
	raw := "[{\"harga\": 19999.99, \"jumlah\": 3}]"

	records, err := Extract(raw, []string{"harga", "jumlah"})
	require.NoError(t, err)
	assert.Equal(t, "19999.99", records[0].Get("harga"))
	assert.Equal(t, "3", records[0].Get("jumlah"))
}

func TestExtractNoStructure(t *testing.T) {
	_, err := Extract("I could not find any items in this image.", nil)
	assert.ErrorIs(t, err, ErrNoStructureFound)
}

func TestExtractFencedProseWithoutStructure(t *testing.T) {
	_, err := Extract("```\nno items found\n```", nil)
	assert.ErrorIs(t, err, ErrNoStructureFound)
}

func TestExtractMalformedAfterRepair(t *testing.T) {
	_, err := Extract("```json\n[{\"barang\": \"Kopi\", \"harga\": }]\n```", nil)
	assert.ErrorIs(t, err, ErrMalformedAfterRepair)
}

func TestExtractEmptyArray(t *testing.T) {
	_, err := Extract("```json\n[]\n```", nil)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestRowFollowsTemplateOrder(t *testing.T) {
	raw := "[{\"harga\": 5000, \"barang\": \"Tahu\"}]"

	records, err := Extract(raw, []string{"barang", "harga"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tahu", "5000"}, records[0].Row())
}
