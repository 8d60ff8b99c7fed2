package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pasta Barilla", "pasta barilla"},
		{"  CAFÉ   au  Lait ", "cafe au lait"},
		{"Milk, 2% (1L)", "milk 2 1l"},
		{"Müsli-Riegel", "musli riegel"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestScoreNames(t *testing.T) {
	t.Run("case and punctuation insensitive exact match", func(t *testing.T) {
		assert.Equal(t, 100.0, ScoreNames("Pasta Barilla", "pasta barilla"))
		assert.Equal(t, 100.0, ScoreNames("Café au Lait", "cafe au lait"))
	})

	t.Run("parenthetical suffix stripped", func(t *testing.T) {
		assert.Equal(t, 95.0, ScoreNames("Pasta (Barilla 500g)", "Pasta"))
	})

	t.Run("substring containment scales with coverage", func(t *testing.T) {
		score := ScoreNames("Milk", "Whole Milk 1L")
		assert.GreaterOrEqual(t, score, 70.0)
		assert.Less(t, score, 90.0)
	})

	t.Run("one differing word lands in suggestion band", func(t *testing.T) {
		score := ScoreNames("Latte Intero 1L", "Latte Scremato 1L")
		assert.GreaterOrEqual(t, score, SuggestThreshold)
		assert.Less(t, score, MatchThreshold)
	})

	t.Run("unrelated names score below suggestion threshold", func(t *testing.T) {
		assert.Less(t, ScoreNames("Mele", "Detersivo"), SuggestThreshold)
	})

	t.Run("empty names score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, ScoreNames("", "Milk"))
		assert.Equal(t, 0.0, ScoreNames("Milk", ""))
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "Latte Intero 1L", "Latte UHT Intero"
		assert.Equal(t, ScoreNames(a, b), ScoreNames(b, a))
	})

	t.Run("bounded to 0..100", func(t *testing.T) {
		pairs := [][2]string{
			{"a", "a"},
			{"a", "b"},
			{"Whole Milk 1L Organic Farm Fresh", "Milk"},
			{"x y z", "x y q"},
		}
		for _, p := range pairs {
			score := ScoreNames(p[0], p[1])
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		}
	})
}

func TestConfidenceLevel(t *testing.T) {
	assert.Equal(t, "high", ConfidenceLevel(100))
	assert.Equal(t, "high", ConfidenceLevel(MatchThreshold))
	assert.Equal(t, "medium", ConfidenceLevel(50))
	assert.Equal(t, "low", ConfidenceLevel(10))
	assert.Equal(t, "none", ConfidenceLevel(0))
}
