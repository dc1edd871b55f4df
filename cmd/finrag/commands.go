package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	ingestuc "github.com/kailas-cloud/finrag/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/finrag/internal/usecase/search"
	"github.com/kailas-cloud/finrag/internal/version"
)

// withApp loads config, builds the app and runs fn against it.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newCLILogger(opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, cfg, opts.docType, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func newSetupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the collection and verify the embedding provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()

				res, err := a.queryEmbedder.Embed(ctx, "finrag setup check")
				if err != nil {
					return fmt.Errorf("embedding provider check: %w", err)
				}
				if len(res.Embedding) != a.vector.Dimensions {
					return fmt.Errorf("embedding provider returned %d dimensions, configured %d",
						len(res.Embedding), a.vector.Dimensions)
				}
				fmt.Fprintf(out, "Embedding provider OK (%s, %d dimensions)\n", a.vector.Model, len(res.Embedding))

				stats, err := a.collections.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Collection %q ready with %d chunks\n", stats.Name, stats.DocumentCount)
				return nil
			})
		},
	}
}

// ingestOutput is the --json shape of an ingestion report.
type ingestOutput struct {
	Documents   []ingestDocument `json:"documents"`
	Errors      []string         `json:"errors"`
	TotalChunks int              `json:"total_chunks"`
}

type ingestDocument struct {
	Filename      string         `json:"filename"`
	Size          int64          `json:"size"`
	ChunksCreated int            `json:"chunks_created"`
	Metadata      chunk.Metadata `json:"metadata"`
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest <directory>",
		Short: "Chunk, embed and store every supported file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				report, err := a.ingest.IngestDirectory(ctx, args[0])
				if asJSON {
					if jerr := writeJSON(cmd.OutOrStdout(), ingestToOutput(report)); jerr != nil {
						return jerr
					}
				} else {
					printReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the report as JSON")
	return cmd
}

func ingestToOutput(r ingestuc.Report) ingestOutput {
	out := ingestOutput{
		Documents:   make([]ingestDocument, 0, len(r.Documents)),
		Errors:      r.Errors,
		TotalChunks: r.ChunkCount,
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	for _, d := range r.Documents {
		out.Documents = append(out.Documents, ingestDocument(d))
	}
	return out
}

func printReport(w io.Writer, r ingestuc.Report) {
	for _, d := range r.Documents {
		fmt.Fprintf(w, "  %s: %d chunks (%d bytes)\n", d.Filename, d.ChunksCreated, d.Size)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	fmt.Fprintf(w, "Ingested %d documents, %d chunks\n", len(r.Documents), r.ChunkCount)
}

// searchHit is the --json shape of one search result.
type searchHit struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata chunk.Metadata `json:"metadata,omitempty"`
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		nResults   int
		asJSON     bool
		noMetadata bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over stored chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				results, err := a.search.Search(ctx, searchuc.Request{
					Query:           args[0],
					NResults:        nResults,
					IncludeMetadata: !noMetadata,
				})
				if err != nil {
					return err
				}

				hits := make([]searchHit, 0, len(results))
				for i := range results {
					h := searchHit{ID: results[i].ID(), Content: results[i].Content(), Score: results[i].Score()}
					if !noMetadata {
						h.Metadata = results[i].Metadata()
					}
					hits = append(hits, h)
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, hits)
				}
				if len(hits) == 0 {
					fmt.Fprintln(out, "No results found.")
					return nil
				}
				for i, h := range hits {
					fmt.Fprintf(out, "[%d] %s (%.3f)\n", i+1, h.ID, h.Score)
					if name := h.Metadata.String(chunk.KeyFilename); name != "" {
						fmt.Fprintf(out, "    Source: %s\n", name)
					}
					fmt.Fprintf(out, "    %s\n\n", h.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&nResults, "n-results", "n", 0, "number of results (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "omit chunk metadata")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				stats, err := a.collections.Stats(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"collection_name":      stats.Name,
					"document_count":       stats.DocumentCount,
					"embedding_model":      stats.EmbeddingModel,
					"embedding_dimensions": stats.EmbeddingDimensions,
				})
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every chunk in the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.collections.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Collection %q reset\n", a.cfg.Store.Collection)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

// chunkLine is one JSON line of the chunk dry run.
type chunkLine struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata chunk.Metadata `json:"metadata"`
}

func newChunkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chunk <file|directory>",
		Short: "Print the chunks of a file or directory as JSON lines without storing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger, err := newCLILogger(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			proc, err := newProcessor(cfg.DocumentSettings(opts.docType), logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			chunks, err := chunkPath(ctx, proc, args[0], logger)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := range chunks {
				line := chunkLine{ID: chunks[i].ID(), Content: chunks[i].Content(), Metadata: chunks[i].Metadata()}
				if err := enc.Encode(line); err != nil {
					return fmt.Errorf("encode chunk: %w", err)
				}
			}
			return nil
		},
	}
}

type chunker interface {
	Process(ctx context.Context, path string) ([]chunk.DocumentChunk, error)
	Chunks(ctx context.Context, dir string) ([]chunk.DocumentChunk, error)
}

func chunkPath(ctx context.Context, proc chunker, path string, logger *zap.Logger) ([]chunk.DocumentChunk, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		chunks, err := proc.Chunks(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("chunk directory: %w", err)
		}
		logger.Debug("Chunked directory", zap.String("path", path), zap.Int("chunks", len(chunks)))
		return chunks, nil
	}
	chunks, err := proc.Process(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("chunk file: %w", err)
	}
	return chunks, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
