package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proddesc/internal/docstore"
	"proddesc/internal/retrieval"
)

func threeSectionSet(t *testing.T) *TemplateSet {
	t.Helper()
	sections := []SectionTemplate{
		{ID: "s1", Name: "First", Order: 1, Required: true, RAGQueryTemplate: "first about {product_name}", PromptTemplate: "Write part one for {product_name}."},
		{ID: "s2", Name: "Second", Order: 2, Required: true, RAGQueryTemplate: "second about {product_name}", PromptTemplate: "Write part two for {product_name}."},
		{ID: "s3", Name: "Third", Order: 3, Required: true, RAGQueryTemplate: "third about {product_name} {keywords}", PromptTemplate: "Write part three for {product_name}."},
	}
	set, err := NewTemplateSet(sections, []Template{{ID: "three", Name: "Three", Sections: sections, IsDefault: true}})
	require.NoError(t, err)
	return set
}

func sectionClient(failOn string) *fakeClient {
	return &fakeClient{respond: func(prompt string) (string, error) {
		name := strings.TrimPrefix(strings.SplitN(prompt[strings.Index(prompt, "SECTION TO GENERATE: "):], "\n", 2)[0], "SECTION TO GENERATE: ")
		if name == failOn {
			return "", errors.New("rate limited")
		}
		return "  content of " + name + "\n", nil
	}}
}

func TestSectionPipeline_PartialFailure(t *testing.T) {
	client := sectionClient("Second")
	p, err := NewSectionPipeline(client, WithTemplates(threeSectionSet(t)))
	require.NoError(t, err)

	res, err := p.Generate(context.Background(), SectionRequest{Product: Product{Name: "Blendo", Category: "kitchen"}})
	require.NoError(t, err)

	secs := res.ProductDescription.Sections
	require.Len(t, secs, 3)
	assert.Equal(t, "content of First", secs[0].Content)
	assert.Equal(t, "[Error while generating section Second]", secs[1].Content)
	assert.Equal(t, "content of Third", secs[2].Content)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{secs[0].ID, secs[1].ID, secs[2].ID})
	assert.Len(t, client.Prompts(), 3)

	assert.Equal(t, TemplateRef{ID: "three", Name: "Three"}, res.ProductDescription.Template)
	assert.Equal(t, "Blendo", res.Metadata.ProductName)
	assert.Equal(t, "kitchen", res.Metadata.ProductCategory)
	assert.False(t, res.Metadata.RAGUsed)
	assert.Equal(t, ProviderRef{Provider: "fake", Model: "fake-model"}, res.Metadata.AIProvider)
}

func TestSectionPipeline_RetrievalPerSection(t *testing.T) {
	searcher := &fakeSearcher{result: &retrieval.Result{Chunks: []*docstore.Chunk{{
		ChunkID: "d1_0", Content: "made of steel",
		Metadata: docstore.Metadata{docstore.MetaTitle: "Spec", docstore.MetaSourceType: "uploaded_file"},
	}}}}
	client := sectionClient("")
	p, err := NewSectionPipeline(client, WithTemplates(threeSectionSet(t)), WithSectionSearcher(searcher, 0))
	require.NoError(t, err)

	req := SectionRequest{
		Product:  Product{Name: "Blendo", Category: "kitchen", Keywords: []string{"a", "b", "c", "d"}},
		UseRAG:   true,
		ClientID: "c1",
	}
	res, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Metadata.RAGUsed)
	assert.Equal(t, "c1", res.Metadata.ClientID)

	require.Len(t, searcher.queries, 3)
	for _, q := range searcher.queries {
		assert.Equal(t, DefaultSectionTopK, q.TopK)
		assert.Equal(t, "c1", q.ClientID)
		assert.Equal(t, "Blendo", q.ProductName)
	}
	assert.Equal(t, "first about Blendo", searcher.queries[0].Text)
	assert.Equal(t, "third about Blendo a, b, c", searcher.queries[2].Text)

	prompt := client.Prompts()[0]
	assert.Contains(t, prompt, "RELEVANT CLIENT CONTEXT FOR SECTION 'FIRST':")
	assert.Contains(t, prompt, "Document 1: Spec (Source: uploaded_file)")
	assert.Contains(t, prompt, "made of steel")
}

func TestSectionPipeline_RetrievalFailureKeepsSection(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index unreadable")}
	client := sectionClient("")
	p, err := NewSectionPipeline(client, WithTemplates(threeSectionSet(t)), WithSectionSearcher(searcher, 3))
	require.NoError(t, err)

	res, err := p.Generate(context.Background(), SectionRequest{Product: Product{Name: "Blendo"}, UseRAG: true, ClientID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "content of First", res.ProductDescription.Sections[0].Content)
	assert.Contains(t, client.Prompts()[0], "RELEVANT CLIENT CONTEXT FOR SECTION 'FIRST':\nError while retrieving context.")
}

func TestSectionPipeline_TemplateSelection(t *testing.T) {
	p, err := NewSectionPipeline(sectionClient(""))
	require.NoError(t, err)

	assert.Equal(t, TemplateStandard, p.Template(SectionRequest{}).ID)
	assert.Equal(t, TemplateTechnical, p.Template(SectionRequest{TemplateID: TemplateTechnical}).ID)

	custom := p.Template(SectionRequest{TemplateID: TemplateStandard, Sections: []string{"warranty"}})
	assert.Equal(t, TemplateCustom, custom.ID)
	assert.Equal(t, []string{"introduction", "benefits", "technical_specs", "warranty", "conclusion"}, sectionIDs(custom))
}

func TestSectionPipeline_Cancelled(t *testing.T) {
	p, err := NewSectionPipeline(sectionClient(""), WithTemplates(threeSectionSet(t)))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Generate(ctx, SectionRequest{Product: Product{Name: "Blendo"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildSectionPrompt(t *testing.T) {
	sec := DefaultSections()[2] // technical_specs
	req := SectionRequest{
		Product: Product{
			Name: "Blendo", Category: "kitchen", Description: "fast blender",
			Keywords:       []string{"blender", "smoothie"},
			TechnicalSpecs: map[string]interface{}{"power": "1200W"},
		},
		ToneStyle:          ToneStyle{Tone: "friendly", Style: "concise", PersonaTarget: "students"},
		CompetitorInsights: Insights{"summary": "rivals are louder", "key_features": []string{"ignored"}},
	}
	prompt := BuildSectionPrompt(sec, req, "")

	assert.True(t, strings.HasPrefix(prompt, "You are an expert in writing e-commerce product pages."))
	assert.Contains(t, prompt, "SECTION TO GENERATE: Technical specifications")
	assert.Contains(t, prompt, "Use the following technical information: - power: 1200W")
	assert.Contains(t, prompt, "- Keywords: blender, smoothie")
	assert.Contains(t, prompt, "STYLE AND TONE:\nTone: friendly. Style: concise\nThe target audience is: students.")
	assert.Contains(t, prompt, "COMPETITOR INSIGHTS:\nsummary: rivals are louder")
	assert.NotContains(t, prompt, "ignored")
	assert.NotContains(t, prompt, "SEO GUIDE:")
	assert.NotContains(t, prompt, "RELEVANT CLIENT CONTEXT")
	assert.Contains(t, prompt, "- Do not include the section title in the response.")
}
