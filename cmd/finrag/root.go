package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/finrag/internal/config"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	env        string
	configPath string
	docType    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "finrag",
		Short: "Financial document chunking and semantic search",
		Long: `finrag splits financial and legislative documents into overlapping,
metadata-rich chunks, stores their embeddings in a vector index and serves
semantic search over them via HTTP or the command line.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "environment (selects config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "explicit config file (overrides --env lookup)")
	cmd.PersistentFlags().StringVar(&opts.docType, "doc-type", "",
		"document type: financial, legislative, general (default from config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	cmd.AddCommand(
		newServeCmd(opts),
		newSetupCmd(opts),
		newIngestCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newResetCmd(opts),
		newChunkCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
