package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/jdindex"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the job-description index from a CSV corpus",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()
		ctx, cancel := signalContext()
		defer cancel()

		csv, _ := cmd.Flags().GetString("csv")
		idx := jdindex.New(config.Index, logger)

		m, err := idx.BuildFromCSV(ctx, csv)
		if err != nil {
			var stageErr *jdindex.StageError
			if errors.As(err, &stageErr) {
				logger.Fatal("building the index", zap.String("stage", string(stageErr.Stage)), zap.Error(stageErr.Err))
			}
			logger.Fatal("building the index", zap.Error(err))
		}

		md := m.Metadata()
		logger.Info("index is ready",
			zap.String("build_id", md.BuildID),
			zap.Int("records", md.TotalRecords),
			zap.Int("roles", md.UniqueRoles),
			zap.Int("dim", md.Dim),
		)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().String("csv", "", "path to the job-description CSV corpus")
	buildCmd.Flags().Int("sample", 0, "train on a seeded random sample of this many rows (0 keeps all)")
	buildCmd.Flags().Int("chunk-size", 0, "rows read per chunk")
	buildCmd.Flags().Int("epochs", 0, "classifier training epochs")
	buildCmd.MarkFlagRequired("csv")

	viper.BindPFlag("index.sample-size", buildCmd.Flags().Lookup("sample"))
	viper.BindPFlag("index.chunk-size", buildCmd.Flags().Lookup("chunk-size"))
	viper.BindPFlag("index.epochs", buildCmd.Flags().Lookup("epochs"))
}
