package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"empty", nil, ""},
		{"all empty", []string{"", "", ""}, ""},
		{"first non-empty", []string{"a", "", "c"}, "a"},
		{"second non-empty", []string{"", "b", "c"}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoalesceString(tt.in...)
			if got != tt.want {
				t.Errorf("CoalesceString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultInt(t *testing.T) {
	tests := []struct {
		v, defaultVal, want int
	}{
		{0, 10, 10},
		{1, 10, 1},
		{-1, 10, -1},
	}
	for _, tt := range tests {
		got := DefaultInt(tt.v, tt.defaultVal)
		if got != tt.want {
			t.Errorf("DefaultInt(%d, %d) = %d, want %d", tt.v, tt.defaultVal, got, tt.want)
		}
	}
}

func TestDefaultFloat(t *testing.T) {
	assert.Equal(t, 0.7, DefaultFloat(0, 0.7))
	assert.Equal(t, 0.2, DefaultFloat(0.2, 0.7))
}

func TestEnsureList(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"nil", nil, []string{}},
		{"string slice as is", []string{"a", "b"}, []string{"a", "b"}},
		{"interface slice", []interface{}{"a", 2, nil}, []string{"a", "2"}},
		{"dash lines", "- improve structure\n- add keywords\n", []string{"improve structure", "add keywords"}},
		{"plain lines", "first\n\nsecond", []string{"first", "second"}},
		{"single scalar string", "only one", []string{"only one"}},
		{"empty string", "", []string{}},
		{"number", 42, []string{"42"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnsureList(tt.in))
		})
	}
}
