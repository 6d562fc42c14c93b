package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/apps"
	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/cmdutil"
	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/roles"
	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/users"
	"github.com/jmurielSett/secHTTPS-sub001/internal/config"
)

var (
	cfg        *config.Config
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "authd",
	Short: "Authentication and role authorization service",
	Long: `authd authenticates users against an ordered list of credential providers
(local database, LDAP directories), issues access/refresh token pairs and answers
role checks from a bounded TTL cache.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := readConfigFile(); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		setupLogging(cfg)

		cmdutil.SetConfig(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./authd.yaml or /etc/authd/authd.yaml)")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: AUTHD_DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: AUTHD_SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: AUTHD_DEBUG)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env: AUTHD_LOG_LEVEL)")

	mustBind("database_url", "db-url")
	mustBind("server_addr", "server-addr")
	mustBind("debug", "debug")
	mustBind("log_level", "log-level")

	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(roles.RolesCmd)
	rootCmd.AddCommand(apps.AppsCmd)
}

func mustBind(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// readConfigFile loads the YAML config when one is given or found. A missing
// file in the default locations is not an error.
func readConfigFile() error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("authd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/authd/")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
