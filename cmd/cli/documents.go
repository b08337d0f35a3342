package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"proddesc/internal/docstore"
	"proddesc/internal/extract"
	"proddesc/internal/retrieval"
)

var (
	ingestClient string
	ingestTitle  string
	ingestSource string

	searchTopK     int
	searchProduct  string
	searchCategory string
	searchJSON     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest txt, md, html or pdf files for a client",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestTitle != "" && len(args) > 1 {
			return fmt.Errorf("--title can only be used with a single file")
		}
		docs := make([]*docstore.Document, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			doc, err := extract.Document(extract.FileInput{
				ClientID: ingestClient,
				Filename: path,
				Data:     data,
				Title:    ingestTitle,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if ingestSource != "" {
				doc.SourceType = ingestSource
			}
			docs = append(docs, doc)
		}

		boot, err := loadBootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer boot.Close()
		ids, err := boot.Store.IngestMany(cmd.Context(), docs)
		for i, id := range ids {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d chunks\t%s\n", id, boot.Store.ChunkCount(id), docs[i].Title)
		}
		return err
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document_id>",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		boot, err := loadBootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer boot.Close()
		deleted, err := boot.Store.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("document not found: %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <client_id>",
	Short: "List a client's documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		boot, err := loadBootstrap(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer boot.Close()
		docs, err := boot.Store.ListByClient(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents.")
			return nil
		}
		for _, d := range docs {
			fmt.Fprintf(out, "%s\t%s\t%s\t%d chunks\n", d.DocumentID, d.SourceType, d.Title, d.ChunkCount)
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <client_id>",
	Short: "Summarize a client's documents by source type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		boot, err := loadBootstrap(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer boot.Close()
		summary, err := boot.Store.SummarizeClient(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, summary)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <client_id> <query>",
	Short: "Search a client's documents",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		boot, err := loadBootstrap(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer boot.Close()
		res, err := boot.Engine.Search(cmd.Context(), retrieval.Query{
			Text:            strings.Join(args[1:], " "),
			ClientID:        args[0],
			ProductName:     searchProduct,
			ProductCategory: searchCategory,
			TopK:            searchTopK,
		})
		if err != nil {
			return err
		}
		if searchJSON {
			return printJSON(cmd, res)
		}
		fmt.Fprintln(cmd.OutOrStdout(), retrieval.FormatContext(res))
		return nil
	},
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestClient, "client", "", "client id (required)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (defaults to the file name)")
	ingestCmd.Flags().StringVar(&ingestSource, "source-type", "", "source type (defaults to "+extract.SourceUploadedFile+")")
	_ = ingestCmd.MarkFlagRequired("client")

	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", retrieval.DefaultTopK, "maximum number of chunks")
	searchCmd.Flags().StringVar(&searchProduct, "product", "", "product name used to enrich the query")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "product category used to enrich the query")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the raw result as JSON")

	rootCmd.AddCommand(ingestCmd, deleteCmd, listCmd, summaryCmd, searchCmd)
}

