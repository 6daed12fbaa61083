package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/jdindex"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the job roles known to the index",
	Run: func(_ *cobra.Command, _ []string) {
		logger, config := setup()
		ctx, cancel := signalContext()
		defer cancel()

		set, err := jdindex.New(config.Index, logger).Roles(ctx)
		if err != nil {
			logIndexError(logger, "listing roles", err)
		}

		logger.Debug("roles loaded", zap.String("source", string(set.Source)), zap.Int("count", len(set.Roles)))
		for _, role := range set.Roles {
			fmt.Println(role)
		}
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}
