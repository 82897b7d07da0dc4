package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator()
	assert.NotNil(t, validator)
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"0901234567", "0901234567", "Standard format"},
		{"090 123 4567", "0901234567", "With spaces"},
		{"090-123-4567", "0901234567", "With dashes"},
		{"090.123.4567", "0901234567", "With dots"},
		{"(090) 123 4567", "0901234567", "With parentheses"},
		{"0321234567", "0321234567", "Viettel 03x"},
		{"0561234567", "0561234567", "Vietnamobile 05x"},
		{"0761234567", "0761234567", "Mobifone 07x"},
		{"0811234567", "0811234567", "Vinaphone 08x"},
		{"84901234567", "0901234567", "With country code"},
		{"+84901234567", "0901234567", "With +84 country code"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"123", ErrInvalidLength, "Too short"},
		{"09012345678", ErrInvalidLength, "Too long"},
		{"0101234567", ErrInvalidPrefix, "Invalid prefix 01"},
		{"0201234567", ErrInvalidPrefix, "Invalid prefix 02"},
		{"0601234567", ErrInvalidPrefix, "Invalid prefix 06"},
		{"090123456a", ErrInvalidFormat, "Contains letters"},
		{"090-123-456a", ErrInvalidFormat, "Contains letters with dashes"},
		{"090 123 456!", ErrInvalidFormat, "Contains special characters"},
		{"1234567890", ErrInvalidPrefix, "Valid length but no leading zero"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.Error(t, err)
			assert.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestSanitize(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		expected string
		name     string
	}{
		{"0901234567", "0901234567", "Already clean"},
		{"090 123 4567", "0901234567", "With spaces"},
		{"090-123-4567", "0901234567", "With dashes"},
		{"090.123.4567", "0901234567", "With dots"},
		{"(090) 123 4567", "0901234567", "With parentheses"},
		{"+84901234567", "0901234567", "With country code and plus"},
		{"84901234567", "0901234567", "With country code"},
		{"090 - 123 - 4567", "0901234567", "Multiple separators"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := validator.Sanitize(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestIsValidPrefix(t *testing.T) {
	validator := NewPhoneValidator()

	validPrefixes := []string{
		"0321234567",
		"0521234567",
		"0701234567",
		"0811234567",
		"0901234567",
		"0961234567",
	}

	for _, phone := range validPrefixes {
		t.Run(phone[:3], func(t *testing.T) {
			assert.True(t, validator.IsValidPrefix(phone))
		})
	}

	invalidPrefixes := []string{
		"0111234567",
		"0201234567",
		"0411234567",
		"0601234567",
		"1901234567",
	}

	for _, phone := range invalidPrefixes {
		t.Run(phone[:3], func(t *testing.T) {
			assert.False(t, validator.IsValidPrefix(phone))
		})
	}

	// Edge cases
	assert.False(t, validator.IsValidPrefix("09"))
	assert.False(t, validator.IsValidPrefix(""))
}

func TestFormat(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		expected string
		name     string
	}{
		{"0901234567", "090 123 4567", "Standard format"},
		{"090 123 4567", "090 123 4567", "Already formatted"},
		{"090-123-4567", "090 123 4567", "With dashes"},
		{"0321234567", "032 123 4567", "Viettel 03x"},
		{"84901234567", "090 123 4567", "With country code"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := validator.Format(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result)
		})
	}

	// Test invalid input
	_, err := validator.Format("invalid")
	assert.Error(t, err)
}

func TestIsValid(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []string{
		"0901234567",
		"090 123 4567",
		"090-123-4567",
		"0321234567",
		"84901234567",
	}

	for _, phone := range validNumbers {
		t.Run(phone, func(t *testing.T) {
			assert.True(t, validator.IsValid(phone))
		})
	}

	invalidNumbers := []string{
		"",
		"invalid",
		"123",
		"0101234567",
		"090123456a",
	}

	for _, phone := range invalidNumbers {
		t.Run(phone, func(t *testing.T) {
			assert.False(t, validator.IsValid(phone))
		})
	}
}

func TestEdgeCases(t *testing.T) {
	validator := NewPhoneValidator()

	t.Run("Phone with only spaces", func(t *testing.T) {
		_, err := validator.Validate("     ")
		assert.Error(t, err)
	})

	t.Run("Phone with mixed separators", func(t *testing.T) {
		sanitized, err := validator.Validate("090-123 4567")
		require.NoError(t, err)
		assert.Equal(t, "0901234567", sanitized)
	})

	t.Run("Very long input", func(t *testing.T) {
		_, err := validator.Validate("090123456789012345678901234567890")
		assert.Error(t, err)
		assert.Equal(t, ErrInvalidLength, err)
	})
}

func BenchmarkValidate(b *testing.B) {
	validator := NewPhoneValidator()
	phone := "0901234567"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = validator.Validate(phone)
	}
}
