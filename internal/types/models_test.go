package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation(t *testing.T) {
	cases := []struct {
		area, ward, want string
	}{
		{"Arapalayam", "Ward 12", "Arapalayam, Ward 12"},
		{"unknown", "unknown", "Madurai"},
		{"unknown", "Ward 3", "Madurai, Ward 3"},
		{"Anna Nagar", "unknown", "Anna Nagar"},
		{"", "", "Madurai"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Location(c.area, c.ward, "Madurai"), "%s/%s", c.area, c.ward)
	}
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority(" HIGH ")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)

	p, ok = ParsePriority("urgent")
	assert.False(t, ok)
	assert.Equal(t, PriorityMedium, p)
}

func TestDefaultExtraction(t *testing.T) {
	d := DefaultExtraction()
	assert.Equal(t, Extraction{Priority: PriorityMedium, Area: Unknown, Ward: Unknown, Fallback: true}, d)
}
