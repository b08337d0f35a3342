package generation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "proddesc/pkg/errors"
)

func sectionIDs(t Template) []string {
	ids := make([]string, len(t.Sections))
	for i, s := range t.Sections {
		ids[i] = s.ID
	}
	return ids
}

func TestDefaultTemplates(t *testing.T) {
	set := DefaultTemplates()
	require.Len(t, set.List(), 3)
	assert.Len(t, set.Sections(), 10)

	std := set.Default()
	assert.Equal(t, TemplateStandard, std.ID)
	assert.Equal(t, []string{"introduction", "benefits", "technical_specs", "use_cases", "warranty", "customer_reviews", "conclusion"}, sectionIDs(std))

	tech, ok := set.Get(TemplateTechnical)
	require.True(t, ok)
	assert.Equal(t, []string{"introduction", "technical_specs", "use_cases", "installation", "maintenance", "warranty", "conclusion"}, sectionIDs(tech))

	com, ok := set.Get(TemplateCommercial)
	require.True(t, ok)
	assert.Equal(t, []string{"introduction", "benefits", "warranty", "customer_reviews", "comparison", "conclusion"}, sectionIDs(com))
}

func TestResolve_UnknownFallsBackToDefault(t *testing.T) {
	set := DefaultTemplates()
	assert.Equal(t, TemplateStandard, set.Resolve("").ID)
	assert.Equal(t, TemplateStandard, set.Resolve("nope").ID)
	assert.Equal(t, TemplateCommercial, set.Resolve(TemplateCommercial).ID)
}

func TestCustomize(t *testing.T) {
	set := DefaultTemplates()
	custom := set.Customize(TemplateCommercial, []string{"comparison", "installation"})
	assert.Equal(t, TemplateCustom, custom.ID)
	assert.Equal(t, "Custom template", custom.Name)
	// installation 不在 commercial 中；必选章节始终保留
	assert.Equal(t, []string{"introduction", "benefits", "comparison", "conclusion"}, sectionIDs(custom))
}

func TestDefault_FirstWhenNoneMarked(t *testing.T) {
	set, err := NewTemplateSet(nil, []Template{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, "a", set.Default().ID)
}

func TestNewTemplateSet_Validation(t *testing.T) {
	_, err := NewTemplateSet(nil, nil)
	assert.ErrorIs(t, err, perrors.ErrConfig)
	_, err = NewTemplateSet(nil, []Template{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, perrors.ErrConfig)
	_, err = NewTemplateSet(nil, []Template{{Name: "no id"}})
	assert.ErrorIs(t, err, perrors.ErrConfig)
}

const templatesYAML = `
sections:
  - id: faq
    name: FAQ
    order: 2
    default_enabled: true
    rag_query_template: "questions about {product_name}"
    prompt_template: "Answer common questions about {product_name}."
  - id: intro
    name: Intro
    order: 1
    required: true
    rag_query_template: "overview of {product_name}"
    prompt_template: "Introduce {product_name}."
templates:
  - id: short
    name: Short page
    is_default: true
    sections: [faq, intro]
  - id: intro_only
    name: Intro only
    sections: [intro]
`

func TestLoadTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(templatesYAML), 0o644))

	set, err := LoadTemplates(path)
	require.NoError(t, err)
	require.Len(t, set.List(), 2)
	def := set.Default()
	assert.Equal(t, "short", def.ID)
	assert.Equal(t, []string{"intro", "faq"}, sectionIDs(def), "sections sorted by order")
	assert.Equal(t, "overview of {product_name}", def.Sections[0].RAGQueryTemplate)
	assert.True(t, def.Sections[0].Required)
}

func TestParseTemplates_SectionsOnly(t *testing.T) {
	set, err := ParseTemplates([]byte(`
sections:
  - {id: a, name: A, order: 2, default_enabled: true}
  - {id: b, name: B, order: 1}
  - {id: c, name: C, order: 3, required: true}
`))
	require.NoError(t, err)
	require.Len(t, set.List(), 1)
	assert.Equal(t, TemplateStandard, set.Default().ID)
	assert.Equal(t, []string{"a", "c"}, sectionIDs(set.Default()))
}

func TestParseTemplates_Errors(t *testing.T) {
	tests := map[string]string{
		"invalid yaml":    "sections: [",
		"no sections":     "templates: []",
		"unknown section": "sections: [{id: a, name: A}]\ntemplates: [{id: t, sections: [b]}]",
		"duplicate":       "sections: [{id: a}, {id: a}]",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTemplates([]byte(data))
			assert.ErrorIs(t, err, perrors.ErrConfig)
		})
	}
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadTemplates_ShippedExample(t *testing.T) {
	set, err := LoadTemplates(filepath.Join("..", "..", "configs", "templates.yaml"))
	require.NoError(t, err)
	assert.Equal(t, TemplateStandard, set.Default().ID)
	assert.Equal(t, []string{"introduction", "technical_specs", "faq"}, sectionIDs(set.Default()))
	assert.Equal(t, []string{"introduction", "technical_specs"}, sectionIDs(set.Resolve(TemplateTechnical)))
}
