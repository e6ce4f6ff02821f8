package enhancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStyles(t *testing.T) {
	granted := []string{"thumbnail", "large"}
	tests := []struct {
		name     string
		cfg      FieldConfiguration
		expected []string
	}{
		{
			name:     "not refined exposes all granted styles",
			cfg:      FieldConfiguration{ConsumerImageStyleIDs: granted},
			expected: []string{"thumbnail", "large"},
		},
		{
			name: "not refined ignores selection",
			cfg: FieldConfiguration{
				ConsumerImageStyleIDs: granted,
				Settings:              Settings{Styles: StyleSettings{CustomSelection: Selection{"large"}}},
			},
			expected: []string{"thumbnail", "large"},
		},
		{
			name: "refined with empty selection degrades to granted",
			cfg: FieldConfiguration{
				ConsumerImageStyleIDs: granted,
				Settings:              Settings{Styles: StyleSettings{Refine: true}},
			},
			expected: []string{"thumbnail", "large"},
		},
		{
			name: "refined intersects selection with granted",
			cfg: FieldConfiguration{
				ConsumerImageStyleIDs: []string{"A", "B"},
				Settings:              Settings{Styles: StyleSettings{Refine: true, CustomSelection: Selection{"B", "C"}}},
			},
			expected: []string{"B"},
		},
		{
			name: "disabled entries are filtered",
			cfg: FieldConfiguration{
				ConsumerImageStyleIDs: granted,
				Settings:              Settings{Styles: StyleSettings{Refine: true, CustomSelection: Selection{"", "0", "large", "thumbnail"}}},
			},
			expected: []string{"large", "thumbnail"},
		},
		{
			name: "only disabled entries select nothing",
			cfg: FieldConfiguration{
				ConsumerImageStyleIDs: granted,
				Settings:              Settings{Styles: StyleSettings{Refine: true, CustomSelection: Selection{"0", ""}}},
			},
			expected: []string{},
		},
		{
			name: "duplicates are removed",
			cfg: FieldConfiguration{
				ConsumerImageStyleIDs: []string{"large", "large", "", "thumbnail"},
				Settings:              Settings{Styles: StyleSettings{Refine: true, CustomSelection: Selection{"large", "large"}}},
			},
			expected: []string{"large"},
		},
		{
			name:     "no granted styles",
			cfg:      FieldConfiguration{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveStyles(tt.cfg))
		})
	}
}

func TestResolveStylesNeverAddsUngranted(t *testing.T) {
	cfg := FieldConfiguration{
		ConsumerImageStyleIDs: []string{"thumbnail", "large"},
		Settings:              Settings{Styles: StyleSettings{Refine: true, CustomSelection: Selection{"large", "huge"}}},
	}
	assert.ElementsMatch(t, []string{"large"}, ResolveStyles(cfg))
}
