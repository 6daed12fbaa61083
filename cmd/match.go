package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var matchCmd = &cobra.Command{
	Use:   "match <text...>",
	Short: "Print the job role that best matches the text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		logger, config := setup()
		ctx, cancel := signalContext()
		defer cancel()

		idx := loadIndex(ctx, config, logger)
		role, conf, err := idx.MatchRole(strings.Join(args, " "))
		if err != nil {
			logger.Fatal("matching a role", zap.Error(err))
		}
		fmt.Printf("%s\t%.3f\n", role, conf)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <text...>",
	Short: "Print the corpus rows nearest to the text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger, config := setup()
		ctx, cancel := signalContext()
		defer cancel()

		k, _ := cmd.Flags().GetInt("k")
		idx := loadIndex(ctx, config, logger)
		matches, err := idx.Query(strings.Join(args, " "), k)
		if err != nil {
			logger.Fatal("querying the index", zap.Error(err))
		}
		for _, m := range matches {
			fmt.Printf("%.4f\t%s\t%s\n", m.Score, m.JobPosition, m.Skills)
		}
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntP("k", "k", 5, "number of rows to return")
}
