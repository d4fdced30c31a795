package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/josephlewis42/minishell/commands"
	"github.com/josephlewis42/minishell/core/config"
	"github.com/josephlewis42/minishell/core/executor"
	"github.com/josephlewis42/minishell/core/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	commandLine string

	// exitStatus is the process status after the root command finishes.
	exitStatus int
)

// configDir returns the directory named by --config, or the per-user
// minishell directory when the flag is unset.
func configDir() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "minishell"), nil
}

// loadConfig reads the configuration. Without --config a missing per-user
// configuration falls back to the built in one.
func loadConfig() (*config.Configuration, error) {
	dir, err := configDir()
	if err != nil {
		return config.Default(), nil
	}
	configuration, err := config.Load(dir)

	if errors.Is(err, fs.ErrNotExist) {
		if cfgPath != "" {
			log.Println("Couldn't load config: did you run init?")
			return nil, err
		}
		return config.Default(), nil
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "minishell",
	Short: "A minimal command interpreter",
	Long: `Reads lines from standard input and runs the commands on them.

Commands may be joined with | and ; and each may carry a single
[N]<, [N]> or [N]>> redirection.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ex, err := executor.New()
		if err != nil {
			return err
		}
		launcher, err := cfg.LauncherArgs()
		if err != nil {
			return err
		}
		if launcher != nil {
			ex.Launcher = launcher
		}

		sessionLog := logger.Discard().Sessionless()
		logFd, err := cfg.OpenAppLog()
		if err != nil {
			return err
		}
		if logFd != nil {
			defer logFd.Close()
			sessionLog = logger.NewJSONLinesLogger(logFd).NewSession()
		}

		shell, err := commands.NewShell(cfg, ex, sessionLog)
		if err != nil {
			return err
		}
		defer shell.Close()

		if cmd.Flags().Changed("command") {
			exitStatus = shell.RunLine(commandLine)
		} else {
			exitStatus = shell.Run()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default is minishell in the user config directory)")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run the given line and exit")
}
