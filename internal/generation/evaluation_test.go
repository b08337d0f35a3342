package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvaluation_FencedJSON(t *testing.T) {
	rec, err := ParseEvaluation("Here is my evaluation:\n" + validEvaluation + "\nHope it helps.")
	require.NoError(t, err)
	assert.Equal(t, 8, rec.TechnicalAccuracy.Value)
	assert.Equal(t, "Specs are right", rec.TechnicalAccuracy.Justification)
	assert.Equal(t, 4, rec.Differentiation.Value)
	assert.Equal(t, []string{"Add a call to action", "Use more keywords", "Compare with rivals"}, rec.ImprovementPoints)
}

func TestParseEvaluation_PointsAsString(t *testing.T) {
	raw := strings.Replace(validEvaluation,
		`["Add a call to action", "Use more keywords", "Compare with rivals"]`,
		`"- Add a call to action\n- Use more keywords"`, 1)
	rec, err := ParseEvaluation(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Add a call to action", "Use more keywords"}, rec.ImprovementPoints)
}

func TestParseEvaluation_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no object", "great description, 8/10"},
		{"broken json", `{"technical_accuracy": 8,`},
		{"score out of range", strings.Replace(validEvaluation, `"structure": 9`, `"structure": 11`, 1)},
		{"score zero", strings.Replace(validEvaluation, `"structure": 9`, `"structure": 0`, 1)},
		{"fractional score", strings.Replace(validEvaluation, `"structure": 9`, `"structure": 8.5`, 1)},
		{"score as string", strings.Replace(validEvaluation, `"structure": 9`, `"structure": "9"`, 1)},
		{"missing score", strings.Replace(validEvaluation, `"persuasion": 5,`, ``, 1)},
		{"missing justification", strings.Replace(validEvaluation, `"tone_style_justification": "Mostly on tone",`, ``, 1)},
		{"missing points", strings.Replace(validEvaluation,
			`,
  "improvement_points": ["Add a call to action", "Use more keywords", "Compare with rivals"]`, ``, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvaluation(tt.raw)
			assert.ErrorIs(t, err, ErrMalformedEvaluation)
		})
	}
}

func TestRenderSummary(t *testing.T) {
	rec, err := ParseEvaluation(validEvaluation)
	require.NoError(t, err)
	want := strings.Join([]string{
		"EVALUATION SCORES:",
		"- Technical accuracy: 8/10",
		"- Tone and style: 7/10",
		"- SEO optimization: 6/10",
		"- Structure: 9/10",
		"- Persuasion: 5/10",
		"- Differentiation: 4/10",
		"",
		"JUSTIFICATIONS:",
		"1. Technical accuracy: Specs are right",
		"2. Tone and style: Mostly on tone",
		"3. SEO optimization: Keywords sparse",
		"4. Structure: Clear headings",
		"5. Persuasion: Weak call to action",
		"6. Differentiation: Generic claims",
	}, "\n")
	assert.Equal(t, want, RenderSummary(rec))
}

func TestExtract(t *testing.T) {
	summary, points, degraded, err := Extract(validEvaluation)
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.True(t, strings.HasPrefix(summary, "EVALUATION SCORES:"))
	assert.Equal(t, "1. Add a call to action\n2. Use more keywords\n3. Compare with rivals", points)

	summary, points, degraded, err = Extract("not json")
	assert.Error(t, err)
	assert.True(t, degraded)
	assert.Equal(t, DegradedSummary, summary)
	assert.Equal(t, RenderPoints(DegradedPoints), points)
}

func TestRenderPoints_Empty(t *testing.T) {
	assert.Equal(t, "", RenderPoints(nil))
}
