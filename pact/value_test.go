package pact

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDecimalTag(t *testing.T) {
	v, anomalies, err := Decode([]byte(`{"decimal":"1.500000000000"}`))
	require.NoError(t, err)
	assert.Empty(t, anomalies)
	assert.Equal(t, KindDecimal, v.Kind)
	assert.True(t, v.Decimal.Equal(decimal.RequireFromString("1.5")))
}

func TestDecodeDecimalTagParseFailurePreservesRaw(t *testing.T) {
	v, anomalies, err := Decode([]byte(`{"decimal":"not-a-number"}`))
	require.NoError(t, err)
	assert.Equal(t, KindMap, v.Kind)
	assert.Equal(t, KindString, v.Map["decimal"].Kind)
	assert.Equal(t, "not-a-number", v.Map["decimal"].Str)
	require.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0].Reason, "decimal tag")
}

func TestDecodeIntTagNonStringPayloadPreservesRawAndReportsAnomaly(t *testing.T) {
	v, anomalies, err := Decode([]byte(`{"int":true}`))
	require.NoError(t, err)
	assert.Equal(t, KindMap, v.Kind)
	require.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0].Reason, "int tag")
}

func TestDecodeLargeIntDowngradesToDecimalString(t *testing.T) {
	// 2^64, one bit past the int64/uint64 boundary.
	v, anomalies, err := Decode([]byte(`{"int":"18446744073709551616"}`))
	require.NoError(t, err)
	assert.Empty(t, anomalies)
	assert.Equal(t, KindBigInt, v.Kind)
	assert.Equal(t, "18446744073709551616", v.BigInt)
}

func TestDecodeSmallIntStaysNative(t *testing.T) {
	v, anomalies, err := Decode([]byte(`{"int":"42"}`))
	require.NoError(t, err)
	assert.Empty(t, anomalies)
	assert.Equal(t, KindInt, v.Kind)
	assert.Equal(t, int64(42), v.Int)
}

func TestDecodeNestedParams(t *testing.T) {
	raw := `[42, {"decimal":"1.5"}, {"nested": {"decimal":"0.01"}}]`
	v, anomalies, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, anomalies)
	require.Equal(t, KindList, v.Kind)
	require.Len(t, v.List, 3)
	assert.Equal(t, int64(42), v.List[0].Int)
	assert.True(t, v.List[1].Decimal.Equal(decimal.RequireFromString("1.5")))
	nested := v.List[2].Map["nested"]
	assert.True(t, nested.Decimal.Equal(decimal.RequireFromString("0.01")))
}

func TestUntaggedPlainNumberDecodesAsInt(t *testing.T) {
	v, anomalies, err := Decode([]byte(`42`))
	require.NoError(t, err)
	assert.Empty(t, anomalies)
	assert.Equal(t, KindInt, v.Kind)
	assert.Equal(t, int64(42), v.Int)
}

func TestUntaggedBareFloatDecodesAsDecimalNotIEEEFloat(t *testing.T) {
	v, anomalies, err := Decode([]byte(`3.14`))
	require.NoError(t, err)
	assert.Empty(t, anomalies)
	assert.Equal(t, KindDecimal, v.Kind)
	assert.True(t, v.Decimal.Equal(decimal.RequireFromString("3.14")))
}

func TestUntaggedBareFloatInsideListDecodesAsDecimal(t *testing.T) {
	v, anomalies, err := Decode([]byte(`[1, 3.14, "x"]`))
	require.NoError(t, err)
	assert.Empty(t, anomalies)
	require.Len(t, v.List, 3)
	assert.Equal(t, KindDecimal, v.List[1].Kind)
	assert.True(t, v.List[1].Decimal.Equal(decimal.RequireFromString("3.14")))
}

func TestDecimalRoundTripNoFloatDrift(t *testing.T) {
	// A value that cannot survive an IEEE-754 float64 round-trip exactly.
	raw := []byte(`{"decimal":"0.1"}`)
	v, _, err := Decode(raw)
	require.NoError(t, err)
	again, _, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, v.Equal(again))
	assert.Equal(t, "0.1", v.Decimal.String())
}
