package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmshell/common"
	"github.com/mensylisir/xmshell/config"
	"github.com/mensylisir/xmshell/connector"
	"github.com/mensylisir/xmshell/controller"
	"github.com/mensylisir/xmshell/driver"
	"github.com/mensylisir/xmshell/envinfo"
	"github.com/mensylisir/xmshell/logger"
	"github.com/mensylisir/xmshell/runner"
	"github.com/mensylisir/xmshell/session"
)

var (
	flagConfig    string
	flagSession   string
	flagDBPath    string
	flagLogLevel  string
	flagLogDir    string
	flagVerbose   bool
	flagUseRemote bool
)

func main() {
	// Local overrides (e.g. XMSHELL_SESSION) may live in a .env next to the
	// binary; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           common.AppName,
		Short:         "Interruptible privileged-command execution for autonomous operators",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(flagLogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level '%s': %w", flagLogLevel, err)
			}
			return logger.InitGlobalLogger(flagLogDir, flagVerbose, level)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flagSession, "session", "s", "", "Session identifier (defaults to a new one, or XMSHELL_SESSION)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database for durable session state")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "Directory for rotated log files (console output if empty)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().BoolVar(&flagUseRemote, "remote", false, "Execute on the remote target from the config file")

	rootCmd.AddCommand(newExecCmd(), newEnvCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Log.Errorf("%v", err)
		os.Exit(1)
	}
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec -- <command ...>",
		Short: "Execute a shell command, pausing for credentials or confirmations as needed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			r, cleanup, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			sess := session.New(sessionID(), store)
			log := logger.Log.WithField(common.LogFieldSession, sess.ID())

			d := driver.New(controller.New(r, cfg), driver.NewTerminalPrompter(), cfg.Session.MaxAuthRetries)
			out, err := d.Run(cmd.Context(), strings.Join(args, " "), sess)
			if err != nil {
				return err
			}

			log.Infof("Outcome: %s", out.Status)
			if out.Stdout != "" {
				fmt.Fprintln(os.Stdout, out.Stdout)
			}
			if out.Stderr != "" {
				fmt.Fprintln(os.Stderr, out.Stderr)
			}
			if out.Status == controller.StatusError {
				return fmt.Errorf("%s: %s", out.ErrKind, out.Details)
			}
			return nil
		},
	}
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Detect the execution target's OS and package manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			sess := session.New(sessionID(), store)

			var (
				info      envinfo.Info
				fromCache bool
			)
			if flagUseRemote {
				conn, dialErr := dialRemote(cfg)
				if dialErr != nil {
					return dialErr
				}
				defer conn.Close()
				info, fromCache, err = envinfo.DetectRemote(cmd.Context(), conn, sess)
			} else {
				info, fromCache, err = envinfo.Detect(sess)
			}
			if err != nil {
				return err
			}

			source := "discovery"
			if fromCache {
				source = "cache"
			}
			fmt.Printf("os=%s pkg_manager=%s (source: %s)\n", info.OS, info.PackageManager, source)
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

func openStore(cfg *config.Config) (session.Store, error) {
	dbPath := flagDBPath
	if dbPath == "" {
		dbPath = cfg.Session.DBPath
	}
	if dbPath == "" {
		return session.NewMemoryStore(), nil
	}
	return session.NewSQLiteStore(dbPath)
}

func sessionID() string {
	if flagSession != "" {
		return flagSession
	}
	if id := os.Getenv("XMSHELL_SESSION"); id != "" {
		return id
	}
	return uuid.NewString()
}

func buildRunner(cfg *config.Config) (runner.Runner, func(), error) {
	if !flagUseRemote {
		return runner.NewShellRunner(cfg.Shell.Interpreter), func() {}, nil
	}
	conn, err := dialRemote(cfg)
	if err != nil {
		return nil, nil, err
	}
	return runner.NewSSHRunner(conn), func() { _ = conn.Close() }, nil
}

func dialRemote(cfg *config.Config) (connector.Connection, error) {
	if cfg.Remote == nil {
		return nil, fmt.Errorf("--remote requires a remote target in the config file")
	}
	return connector.NewConnection(connector.Config{
		Username: cfg.Remote.User,
		Password: cfg.Remote.Password,
		Address:  cfg.Remote.Address,
		Port:     cfg.Remote.Port,
		KeyFile:  cfg.Remote.PrivateKeyPath,
		Timeout:  30 * time.Second,
	})
}
