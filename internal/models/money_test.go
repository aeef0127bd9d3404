package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Money
	}{
		{name: "decimal string", json: `"1299.00"`, want: 129900},
		{name: "number", json: `49.5`, want: 4950},
		{name: "integer", json: `12`, want: 1200},
		{name: "null", json: `null`, want: 0},
		{name: "empty string", json: `""`, want: 0},
		{name: "float noise", json: `"0.29"`, want: 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			require.NoError(t, json.Unmarshal([]byte(tt.json), &m))
			assert.Equal(t, tt.want, m)
		})
	}

	var m Money
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &m))
	assert.Error(t, json.Unmarshal([]byte(`1e300`), &m))
}

func TestParseMoney_Range(t *testing.T) {
	for _, in := range []string{"1e300", "-1e300", "92233720368547758.08", "NaN", "Inf"} {
		_, err := ParseMoney(in)
		assert.Error(t, err, in)
	}

	m, err := ParseMoney("1000000000000.5")
	require.NoError(t, err)
	assert.Equal(t, Money(100000000000050), m)
	assert.Equal(t, "1000000000000.50", m.String())
}

func TestMoney_Format(t *testing.T) {
	assert.Equal(t, "1299.00", Money(129900).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "-3.10", Money(-310).String())
	assert.Equal(t, "₹5.00", Money(500).Display())

	data, err := json.Marshal(Money(2598))
	require.NoError(t, err)
	assert.Equal(t, `"25.98"`, string(data))
}

func TestMoney_Percent(t *testing.T) {
	assert.Equal(t, Money(2598), Money(129900).Percent(0.02))
	assert.Equal(t, Money(1), Money(50).Percent(0.02))
}

func TestUserProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "Alice", (&UserProfile{Username: "alice", FirstName: "Alice"}).DisplayName())
	assert.Equal(t, "alice", (&UserProfile{Username: "alice"}).DisplayName())
}
