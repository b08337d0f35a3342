package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecsFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Spec
	}{
		{
			name: "tab separated pairs",
			text: "Tank colour :\tblue\tModel :\tBare tank\nMaterial :\tPolyethylene\tCapacity :\t5000 L\nWeight :\t101.50 kg\t\t",
			want: []Spec{
				{Name: "Tank colour", Value: "blue"},
				{Name: "Model", Value: "Bare tank"},
				{Name: "Material", Value: "Polyethylene"},
				{Name: "Capacity", Value: "5000 L"},
				{Name: "Weight", Value: "101.50 kg"},
			},
		},
		{
			name: "colon pairs on one line",
			text: "Power: 18 V, Torque: 60 Nm, Weight: 1.4 kg",
			want: []Spec{
				{Name: "Power", Value: "18 V"},
				{Name: "Torque", Value: "60 Nm"},
				{Name: "Weight", Value: "1.4 kg"},
			},
		},
		{
			name: "colon pairs on lines",
			text: "  Diameter: 1790 mm\nHeight:2210 mm\nNotes:\n",
			want: []Spec{
				{Name: "Diameter", Value: "1790 mm"},
				{Name: "Height", Value: "2210 mm"},
			},
		},
		{
			name: "no pairs",
			text: "just a sentence",
			want: []Spec{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpecsFromText(tt.text))
		})
	}
}

func TestProductSpecs_MergesRawSpecs(t *testing.T) {
	p := Product{
		TechnicalSpecs: map[string]interface{}{"Power": "20 V"},
		RawSpecs:       "Power: 18 V, Torque: 60 Nm",
	}
	assert.Equal(t, map[string]interface{}{"Power": "20 V", "Torque": "60 Nm"}, p.Specs())

	prompt := BuildGenerationPrompt(Request{Product: p}, "")
	assert.Contains(t, prompt, "- Torque: 60 Nm")
	assert.Contains(t, prompt, "- Power: 20 V")

	assert.Nil(t, Product{}.Specs())
}
