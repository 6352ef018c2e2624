package money_test

import (
	"encoding/json"
	"testing"

	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSOL(t *testing.T) {
	cases := []struct {
		in   string
		want money.Lamports
	}{
		{"1", 1_000_000_000},
		{"1.0", 1_000_000_000},
		{"0.5", 500_000_000},
		{"1.92", 1_920_000_000},
		{"0.000000001", 1},
		{"0", 0},
		{"-0.25", -250_000_000},
	}
	for _, c := range cases {
		got, err := money.ParseSOL(c.in)
		require.NoError(t, err, "ParseSOL(%q)", c.in)
		assert.Equal(t, c.want, got, "ParseSOL(%q)", c.in)
	}
}

func TestParseSOLRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "abc", "1.0000000001", "1,5"} {
		_, err := money.ParseSOL(in)
		assert.Error(t, err, "ParseSOL(%q)", in)
	}
}

func TestParseSOLRejectsOverflow(t *testing.T) {
	// 9223372036.854775807 SOL is the largest representable amount.
	max, err := money.ParseSOL("9223372036.854775807")
	require.NoError(t, err)
	assert.Equal(t, money.Lamports(9_223_372_036_854_775_807), max)

	for _, in := range []string{
		"9223372036.854775808",
		"9223372037",
		"99999999999",
		"184467440737095516.16",
	} {
		_, err := money.ParseSOL(in)
		assert.Error(t, err, "ParseSOL(%q) must not wrap", in)
	}
}

func TestSOLRoundTrips(t *testing.T) {
	for _, s := range []string{"1", "0.5", "1.92", "0.000000001", "0", "2.08"} {
		l, err := money.ParseSOL(s)
		require.NoError(t, err)
		assert.Equal(t, s, l.SOL())
	}
}

func TestJSON(t *testing.T) {
	l := money.Lamports(1_920_000_000)
	b, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, `"1.92"`, string(b))

	var back money.Lamports
	require.NoError(t, json.Unmarshal([]byte(`"2"`), &back))
	assert.Equal(t, money.Lamports(2_000_000_000), back)

	require.NoError(t, json.Unmarshal([]byte(`0.04`), &back))
	assert.Equal(t, money.Lamports(40_000_000), back)
}
