package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSpotName(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  SpotName
		expectErr bool
	}{
		{
			name:     "Zone and dash sequence",
			raw:      "A2-14",
			expected: SpotName{Zone: "A2", Seq: 14},
		},
		{
			name:     "Bay spot",
			raw:      "zaliv-3",
			expected: SpotName{Zone: "zaliv", Seq: 3, Bay: true},
		},
		{
			name:     "Bay spot uppercase",
			raw:      "Zaliv 2",
			expected: SpotName{Zone: "Zaliv", Seq: 2, Bay: true},
		},
		{
			name:     "Hash separator",
			raw:      "P1 #12",
			expected: SpotName{Zone: "P1", Seq: 12},
		},
		{
			name:     "Multiple spaces",
			raw:      "  Hlavná    brána  - 7 ",
			expected: SpotName{Zone: "Hlavná brána", Seq: 7},
		},
		{
			name:     "No separated sequence",
			raw:      "A12",
			expected: SpotName{Zone: "A12", Seq: 0},
		},
		{
			name:      "Empty",
			raw:       "   ",
			expectErr: true,
		},
		{
			name:      "Only a number",
			raw:       "-5",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseSpotName(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, parsed)
		})
	}
}

func TestIsBay(t *testing.T) {
	assert.True(t, IsBay("zaliv-1"))
	assert.True(t, IsBay(" ZALIV"))
	assert.False(t, IsBay("A-1"))
	assert.False(t, IsBay("parking zaliv"))
}
