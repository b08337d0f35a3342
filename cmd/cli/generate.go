package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"proddesc/internal/app"
	"proddesc/internal/generation"
)

var (
	genProvider string
	genModel    string
	genSimple   bool

	sectionsTemplate string
	sectionsList     []string
)

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func newGenerators(cmd *cobra.Command) (*app.Bootstrap, *app.Generators, error) {
	boot, err := loadBootstrap(cmd.Context(), true)
	if err != nil {
		return nil, nil, err
	}
	g, err := boot.NewGenerators(nil)
	if err != nil {
		_ = boot.Close()
		return nil, nil, err
	}
	return boot, g, nil
}

var generateCmd = &cobra.Command{
	Use:   "generate <request.json>",
	Short: "Generate a product description with the self-improving chain",
	Long: `Reads a request with product_info, tone_style and optional competitor_insights,
seo_guide_insights, use_rag and client_id, then runs generate, evaluate, extract,
improve and verify. With --simple only the first generation is run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req generation.Request
		if err := readJSONFile(args[0], &req); err != nil {
			return err
		}
		boot, g, err := newGenerators(cmd)
		if err != nil {
			return err
		}
		defer boot.Close()
		pipeline, err := g.Pipeline(genProvider, genModel)
		if err != nil {
			return err
		}
		if genSimple {
			desc, err := pipeline.Describe(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		}
		res, err := pipeline.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var sectionsCmd = &cobra.Command{
	Use:   "sections <request.json>",
	Short: "Generate a sectioned product sheet from a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req generation.SectionRequest
		if err := readJSONFile(args[0], &req); err != nil {
			return err
		}
		if sectionsTemplate != "" {
			req.TemplateID = sectionsTemplate
		}
		if len(sectionsList) > 0 {
			req.Sections = sectionsList
		}
		boot, g, err := newGenerators(cmd)
		if err != nil {
			return err
		}
		defer boot.Close()
		pipeline, err := g.SectionPipeline(genProvider, genModel)
		if err != nil {
			return err
		}
		res, err := pipeline.Generate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List section templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		set := generation.DefaultTemplates()
		if cfg.Generation.TemplatesFile != "" {
			if set, err = generation.LoadTemplates(cfg.Generation.TemplatesFile); err != nil {
				return err
			}
		}
		for _, t := range set.List() {
			ids := make([]string, 0, len(t.Sections))
			for _, s := range t.Sections {
				ids = append(ids, s.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", t.ID, t.Name, ids)
		}
		return nil
	},
}

var toneCmd = &cobra.Command{
	Use:   "tone <sample.txt>",
	Short: "Analyze the tone of a sample text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		boot, g, err := newGenerators(cmd)
		if err != nil {
			return err
		}
		defer boot.Close()
		client, err := g.Client(genProvider, genModel)
		if err != nil {
			return err
		}
		res, err := generation.AnalyzeTone(cmd.Context(), client, string(text))
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var tonesCmd = &cobra.Command{
	Use:   "tones",
	Short: "List the built-in reference tones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, t := range generation.PredefinedTones() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.ID, t.Description)
		}
		return nil
	},
}

var specsCmd = &cobra.Command{
	Use:   "specs <specs.txt>",
	Short: "Parse a pasted specification table into technical specs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, generation.SpecsFromText(string(text)))
	},
}

func init() {
	for _, c := range []*cobra.Command{generateCmd, sectionsCmd, toneCmd} {
		c.Flags().StringVar(&genProvider, "provider", "", "llm provider (defaults to model.provider)")
		c.Flags().StringVar(&genModel, "model", "", "model name (defaults to the provider's configured model)")
	}
	generateCmd.Flags().BoolVar(&genSimple, "simple", false, "single generation without evaluation and improvement")
	sectionsCmd.Flags().StringVarP(&sectionsTemplate, "template", "t", "", "template id: standard, technical or commercial")
	sectionsCmd.Flags().StringSliceVar(&sectionsList, "sections", nil, "customize the template with these section ids")

	rootCmd.AddCommand(generateCmd, sectionsCmd, templatesCmd, toneCmd, tonesCmd, specsCmd)
}
