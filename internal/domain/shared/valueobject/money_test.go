package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), KES)
		require.NoError(t, err)
		assert.Equal(t, KES, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyKES(t *testing.T) {
	m := NewMoneyKES(decimal.NewFromFloat(50.00))
	assert.Equal(t, KES, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(50.00)))
}

func TestNewMoneyKESFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyKESFromString("199.99")
		require.NoError(t, err)
		assert.Equal(t, KES, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(199.99)))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyKESFromString("not-a-number")
		assert.Error(t, err)
	})
}

func TestZero(t *testing.T) {
	m := Zero(USD)
	assert.True(t, m.IsZero())
	assert.Equal(t, USD, m.Currency())
}

func TestMoney_Add(t *testing.T) {
	t.Run("adds same currency", func(t *testing.T) {
		a := NewMoneyKES(decimal.NewFromInt(100))
		b := NewMoneyKES(decimal.NewFromInt(50))
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(150)))
	})

	t.Run("rejects mixed currencies", func(t *testing.T) {
		a := NewMoneyKES(decimal.NewFromInt(100))
		b, _ := NewMoney(decimal.NewFromInt(50), USD)
		_, err := a.Add(b)
		assert.Error(t, err)
	})
}

func TestMoney_Subtract(t *testing.T) {
	a := NewMoneyKES(decimal.NewFromInt(100))
	b := NewMoneyKES(decimal.NewFromInt(30))
	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount().Equal(decimal.NewFromInt(70)))

	_, err = a.Subtract(Zero(USD))
	assert.Error(t, err)
}

func TestMoney_Multiply(t *testing.T) {
	m := NewMoneyKES(decimal.NewFromInt(1160))
	assert.True(t, m.MultiplyByInt(2).Amount().Equal(decimal.NewFromInt(2320)))
	assert.True(t, m.Multiply(decimal.NewFromFloat(0.16)).Amount().Equal(decimal.NewFromFloat(185.6)))
}

func TestMoney_RoundMinorUnit(t *testing.T) {
	m := NewMoneyKES(decimal.NewFromFloat(10.005))
	assert.Equal(t, "10.01 KES", m.RoundMinorUnit().String())
}

func TestMoney_Equals(t *testing.T) {
	a := NewMoneyKES(decimal.NewFromInt(100))
	b := NewMoneyKES(decimal.NewFromInt(100))
	c, _ := NewMoney(decimal.NewFromInt(100), USD)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestMoney_JSON(t *testing.T) {
	m := NewMoneyKES(decimal.NewFromFloat(2320.00))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"2320","currency":"KES"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("123.45"))
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	assert.Equal(t, DefaultCurrency, m.Currency())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(42))
}
