package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevenue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		quantity int64
		price    float64
		want     float64
	}{
		{name: "whole price", quantity: 3, price: 100, want: 300},
		{name: "cents", quantity: 3, price: 19.99, want: 59.97},
		{name: "zero quantity", quantity: 0, price: 19.99, want: 0},
		{name: "many units", quantity: 1000, price: 0.07, want: 70},
		{name: "sub-cent price rounds half even", quantity: 1, price: 0.125, want: 0.12},
		{name: "sub-cent price rounds up", quantity: 1, price: 0.135, want: 0.14},
		{name: "rounds the decimal price, not its binary value", quantity: 1, price: 1.015, want: 1.02},
		{name: "decimal half even on product", quantity: 3, price: 0.335, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Revenue(tt.quantity, tt.price))
		})
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, 0.0, Round2(0))
}

func TestEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, Equal(59.97, 59.970000001))
	assert.False(t, Equal(59.97, 59.98))
}
