package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/ai/gemini"
	"github.com/spigell/resume-reviewer/internal/jdindex"
	"github.com/spigell/resume-reviewer/internal/logger"
	"github.com/spigell/resume-reviewer/internal/report"
)

const (
	app       = "resume-reviewer"
	envPrefix = "RESUME_REVIEWER"
)

type Config struct {
	Index  jdindex.Config `mapstructure:"index"`
	AI     *AIConfig      `mapstructure:"ai"`
	Server ServerConfig   `mapstructure:"server"`
	Report report.Options `mapstructure:"report"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	gemini.Options `mapstructure:",squash"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	APIKey         string `mapstructure:"api-key"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-reviewer scores resumes against a job-description index and asks an LLM for feedback",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig()
		},
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-reviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("artifact-dir", "", "directory holding the index artifacts")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("index.artifact-dir", rootCmd.PersistentFlags().Lookup("artifact-dir"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	idx := jdindex.DefaultConfig()
	v.SetDefault("index.artifact-dir", idx.ArtifactDir)
	v.SetDefault("index.chunk-size", idx.ChunkSize)
	v.SetDefault("index.sample-size", idx.SampleSize)
	v.SetDefault("index.max-features", idx.MaxFeatures)
	v.SetDefault("index.epochs", idx.Epochs)
	v.SetDefault("index.alpha", idx.Alpha)
	v.SetDefault("index.seed", idx.Seed)
	v.SetDefault("index.language", idx.Language)
	v.SetDefault("index.disable-language-filter", false)
	v.SetDefault("index.stem", false)
	v.SetDefault("index.workers", 0)

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.temperature", 0)
	v.SetDefault("ai.gemini.max-output-tokens", 0)
	v.SetDefault("ai.gemini.max-tries", 0)
	v.SetDefault("ai.gemini.max-log-length", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("report.page-size", "A4")
	v.SetDefault("report.font-family", "Arial")
}

// initConfig reads the config file when there is one. An explicit --config
// must exist; the default file is optional.
func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// setup returns the logger and the decoded config, exiting on failure like
// every command does.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Debug("starting with config", zap.Any("index", config.Index), zap.String("version", version))
	return logger, config
}
