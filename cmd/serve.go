package cmd

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/artifacts"
	"github.com/spigell/resume-reviewer/internal/jdindex"
	"github.com/spigell/resume-reviewer/internal/review"
	"github.com/spigell/resume-reviewer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		logger, config := setup()
		ctx, cancel := signalContext()
		defer cancel()

		idx := jdindex.New(config.Index, logger)
		if _, err := idx.Load(ctx); err != nil {
			if !errors.Is(err, artifacts.ErrNotBuilt) {
				logger.Fatal("loading the index", zap.Error(err))
			}
			logger.Warn("index is not built, api answers 503 until it is", zap.String("hint", notReadyHint))
		}

		reviewer, err := newReviewer(ctx, config.AI, logger)
		if err != nil {
			logger.Warn("llm review disabled", zap.Error(err))
			reviewer = nil
		}

		if !viper.GetBool("debug") {
			gin.SetMode(gin.ReleaseMode)
		}
		router := server.NewRouter(server.RouterConfig{
			Index:   idx,
			Reviews: review.NewService(idx, reviewer, logger),
			Report:  config.Report,
			Logger:  logger,
		})

		if err := server.Run(ctx, config.Server.Addr, router, logger); err != nil {
			logger.Fatal("serving http", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
