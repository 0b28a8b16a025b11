// Command cmdcore runs the chat command bot and offers offline helpers for
// permissions and the audit journal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m3rciful/cmdcore/core/audit"
	"github.com/m3rciful/cmdcore/core/buildinfo"
	"github.com/m3rciful/cmdcore/core/cmd"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	coredatabase "github.com/m3rciful/cmdcore/core/database"
	"github.com/m3rciful/cmdcore/core/permission"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)
	root := &cobra.Command{
		Use:           "cmdcore",
		Short:         "cmdcore - prefix command bot for Discord, Telegram, Slack and the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadEnv(envFile)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (defaults to $CONFIG_PATH, then config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the config")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Connect the enabled adapters and serve commands",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return cmd.Run(cmd.Options{ConfigPath: configPath, DefaultConfigPath: "config.yaml"})
			},
		},
		&cobra.Command{
			Use:   "check <granted> <required>",
			Short: "Report whether a granted permission satisfies a required one (\"none\" or empty is open)",
			Args:  cobra.ExactArgs(2),
			RunE: func(c *cobra.Command, args []string) error {
				ok := permission.IsOpen(args[1]) || permission.Matches(args[0], args[1])
				fmt.Fprintln(c.OutOrStdout(), strconv.FormatBool(ok))
				if !ok {
					return errNoMatch
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "history [count]",
			Short: "Print the most recent invocations from the audit database",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				limit := 20
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("count must be a positive integer, got %q", args[0])
					}
					limit = n
				}
				return printHistory(c, configPath, limit)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(c *cobra.Command, _ []string) {
				fmt.Fprintf(c.OutOrStdout(), "cmdcore %s (%s) %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
			},
		},
	)
	return root
}

var errNoMatch = errors.New("permission not satisfied")

// loadEnv reads a dotenv file if it exists. Variables already set win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Printf("loaded environment from %s", path)
	return nil
}

func printHistory(c *cobra.Command, configPath string, limit int) error {
	path, err := cmd.ResolveConfigPath(cmd.Options{ConfigPath: configPath, DefaultConfigPath: "config.yaml"})
	if err != nil {
		return err
	}
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return err
	}
	if !cfg.Audit.Enabled {
		return errors.New("audit is disabled in the config")
	}
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := coredatabase.Connect(ctx, cfg.Audit.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := audit.NewStore(db).Recent(ctx, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPLATFORM\tUSER\tCOMMAND\tOUTCOME\tDURATION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.At.UTC().Format("2006-01-02 15:04:05"), e.Platform, e.UserID, e.Command, e.Outcome, e.Duration)
	}
	return w.Flush()
}
