package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdata/tariff-extractor/internal/common"
)

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"[{\"a\":1}]":                         "[{\"a\":1}]",
		"```json\n[{\"a\":1}]\n```":           "[{\"a\":1}]",
		"```\n[{\"a\":1}]\n```":               "[{\"a\":1}]",
		"  ```json\n[{\"a\":1}]\n```  ":       "[{\"a\":1}]",
		"":                                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFence(in))
	}
}

func TestDecodeRecordsArray(t *testing.T) {
	reply := "```json\n" + `[
		{"Country": "India", "Type": "IB", "Equipment_Type": "40HC", "Currency": "USD", "Free_days": 7},
		{"Country": "India", "Type": "OB", "Equipment_Type": "20GP", "Currency": "USD", "Free_days": "5"}
	]` + "\n```"

	rows, err := DecodeRecords(reply, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "India", rows[0]["Country"])
	assert.Equal(t, "IB", rows[0]["Type"])
	assert.Equal(t, "5", rows[1]["Free_days"])
}

func TestDecodeRecordsBareObject(t *testing.T) {
	rows, err := DecodeRecords(`{"Country": "Kenya", "Type": "OB"}`, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kenya", rows[0]["Country"])
}

func TestDecodeRecordsEmpty(t *testing.T) {
	for _, reply := range []string{
		"", "   ", "```json\n```",
		// decodes cleanly but carries no rows
		"null", "[]", "```json\nnull\n```", "```json\n[]\n```",
	} {
		_, err := DecodeRecords(reply, nil)
		assert.ErrorIs(t, err, common.ErrEmptyResponse, "reply %q", reply)
	}
}

func TestDecodeRecordsMalformed(t *testing.T) {
	for _, reply := range []string{
		"The table contains three tariff rows.",
		`[{"Country": "India",`,
		`"just a string"`,
	} {
		_, err := DecodeRecords(reply, nil)
		assert.ErrorIs(t, err, common.ErrMalformedResponse, "reply %q", reply)
	}
}

func TestDecodeRecordsKeyCanonicalization(t *testing.T) {
	rows, err := DecodeRecords(`[{
		"country": "India",
		"direction": "IB",
		"liner name": "MSC",
		"equipment type": "40HC",
		"currency": "USD",
		"free days": 7,
		"bucket 1": 100,
		"Notes": "ignore me"
	}]`, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "India", row["Country"])
	assert.Equal(t, "IB", row["Type"])
	assert.Equal(t, "MSC", row["Liner_Name"])
	assert.Equal(t, "40HC", row["Equipment_Type"])
	assert.Equal(t, float64(7), row["Free_days"])
	assert.Equal(t, float64(100), row["Bucket_1"])
	_, hasNotes := row["Notes"]
	assert.False(t, hasNotes)
}

func TestSchemaValidation(t *testing.T) {
	schema, err := CompileSchema(BuildTariffJSONSchema())
	require.NoError(t, err)

	good := RawRecord{
		"Country": "India", "Type": "IB", "Equipment_Type": "40HC",
		"Currency": "USD", "Free_days": 7,
	}
	assert.NoError(t, ValidateRecord(schema, good))

	// loose numerics: strings and nulls pass the schema, the normalizer decides
	loose := RawRecord{
		"Country": "India", "Type": "IB", "Equipment_Type": "40HC",
		"Currency": "USD", "Free_days": "7", "Bucket_1": nil, "Bucket_2": "null",
	}
	assert.NoError(t, ValidateRecord(schema, loose))

	missing := RawRecord{"Country": "India", "Type": "IB"}
	assert.Error(t, ValidateRecord(schema, missing))

	foreign := RawRecord{
		"Country": "India", "Type": "IB", "Equipment_Type": "40HC",
		"Currency": "USD", "Free_days": 7, "Remarks": "n/a",
	}
	assert.Error(t, ValidateRecord(schema, foreign))
}
