package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imgcrawl/imgcrawl/internal/bgremove"
	"github.com/imgcrawl/imgcrawl/internal/fetcher"
)

// newStripCmd creates the 'strip' subcommand, which batch-removes
// backgrounds from previously downloaded images via the configured
// external segmentation service.
func newStripCmd() *cobra.Command {
	var inputDir string
	var outputDir string
	var recursive bool

	cmd := &cobra.Command{
		Use:   "strip",
		Short: "Strip backgrounds from downloaded images",
		Long: `Sends each image in the input directory to the configured
background-removal service and writes nobg_<name>.png files to the
output directory. Images whose output already exists are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush
			if inputDir != "" {
				cfg.BgRemove.InputDir = inputDir
			}
			if outputDir != "" {
				cfg.BgRemove.OutputDir = outputDir
			}
			if cmd.Flags().Changed("recursive") {
				cfg.BgRemove.Recursive = recursive
			}

			client, err := bgremove.NewClient(
				cfg.BgRemove.Endpoint,
				fetcher.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.InsecureSkipVerify),
				logger,
			)
			if err != nil {
				return fmt.Errorf("init background-removal client: %w", err)
			}
			batch, err := bgremove.NewBatch(
				client,
				cfg.BgRemove.InputDir,
				cfg.BgRemove.OutputDir,
				cfg.BgRemove.Recursive,
				logger,
			)
			if err != nil {
				return fmt.Errorf("init batch: %w", err)
			}

			processed, err := batch.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run batch: %w", err)
			}
			logger.Info("strip finished", zap.Int("processed", processed))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "directory of images to process (overrides bgremove.input_dir)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for processed images (overrides bgremove.output_dir)")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "also process images in subdirectories")

	return cmd
}
