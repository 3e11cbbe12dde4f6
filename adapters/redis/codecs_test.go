package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type codecPayload struct {
	Name      string    `json:"name"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

func TestEncodeStreamValues(t *testing.T) {
	t.Run("normal struct", func(t *testing.T) {
		input := codecPayload{
			Name:      "generate-structure",
			Attempts:  3,
			CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		}

		values, err := EncodeStreamValues(input)
		assert.NoError(t, err)
		assert.Contains(t, values, "data")
		assert.NotEmpty(t, values["data"])
	})

	t.Run("pointer type error", func(t *testing.T) {
		input := &codecPayload{Name: "generate-structure"}

		_, err := EncodeStreamValues(input)
		assert.ErrorIs(t, err, ErrPointerType)
	})
}

func TestDecodeStreamValues(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		input := codecPayload{
			Name:      "generate-structure",
			Attempts:  2,
			CreatedAt: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
		}

		values, err := EncodeStreamValues(input)
		assert.NoError(t, err)

		result, err := DecodeStreamValues[codecPayload](values)
		assert.NoError(t, err)
		assert.Equal(t, input.Name, result.Name)
		assert.Equal(t, input.Attempts, result.Attempts)
		assert.True(t, input.CreatedAt.UTC().Equal(result.CreatedAt.UTC()))
	})

	t.Run("empty values", func(t *testing.T) {
		result, err := DecodeStreamValues[codecPayload](map[string]any{})
		assert.NoError(t, err)
		assert.Empty(t, result.Name)
		assert.Zero(t, result.Attempts)
	})

	t.Run("pointer type error", func(t *testing.T) {
		_, err := DecodeStreamValues[*codecPayload](map[string]any{"data": "x"})
		assert.ErrorIs(t, err, ErrPointerType)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := DecodeStreamValues[codecPayload](map[string]any{"data": "!!! not base64 !!!"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "base64 decode error")
	})

	t.Run("missing data field", func(t *testing.T) {
		_, err := DecodeStreamValues[codecPayload](map[string]any{"payload": "zzz"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "data field not found")
	})
}
