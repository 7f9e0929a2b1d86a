package finance_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iag-lol/gastosanuales-app/finance"
)

func TestAmount_Money_Normalization(t *testing.T) {
	cases := []struct {
		in   finance.Amount
		want string
		ok   bool
	}{
		{"1500", "1500", true},
		{"1500.50", "1500.5", true},
		{" 42 ", "42", true},
		{"", "0", false},
		{"abc", "0", false},
		{"NaN", "0", false},
		{"Infinity", "0", false},
		{"12,50", "0", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Money().String())
			assert.Equal(t, tc.ok, tc.in.Valid())
		})
	}
}

func TestAmount_UnmarshalJSON_NumberOrString(t *testing.T) {
	var payload struct {
		A finance.Amount `json:"a"`
		B finance.Amount `json:"b"`
		C finance.Amount `json:"c"`
		D finance.Amount `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a": 1000.25, "b": "2000", "c": null, "d": "oops"}`), &payload)
	require.NoError(t, err)

	assert.True(t, payload.A.Money().Equal(finance.MustParseMoney("1000.25")))
	assert.True(t, payload.B.Money().Equal(finance.MoneyFromInt(2000)))
	assert.True(t, payload.C.IsEmpty())
	assert.True(t, payload.D.Money().IsZero(), "malformed strings normalize to zero")
}

func TestAmount_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(map[string]finance.Amount{
		"n": finance.AmountFromString("10.50"),
		"s": finance.AmountFromString("abc"),
		"e": "",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 10.5, "s": "abc", "e": null}`, string(out))
}

func TestMoney_Arithmetic(t *testing.T) {
	a := finance.MoneyFromInt(1001)

	assert.Equal(t, "500.5", a.Half().String())
	assert.Equal(t, "501", a.Half().Round(0).String(), "half rounds away from zero")
	assert.Equal(t, "2002", a.Add(a).String())
	assert.True(t, a.Sub(finance.MoneyFromInt(2000)).IsNegative())
	assert.True(t, finance.MustParseMoney("0.1").Add(finance.MustParseMoney("0.2")).Equal(finance.MustParseMoney("0.3")))
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := finance.MustParseMoney("1234.56")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "1234.56", string(out))

	var back finance.Money
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, back.Equal(m))
}

func TestPercentChange(t *testing.T) {
	got := finance.PercentChange(finance.MoneyFromInt(100), finance.MoneyFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(-50)), "got %s", got)
}
