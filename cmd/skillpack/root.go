// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bikeshaving/skillpack/internal/config"
	"github.com/bikeshaving/skillpack/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug-level logging
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg is the resolved tool configuration, loaded before any command runs
	cfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "skillpack",
		Short: "Package a skill document with everything it references",
		Long: TitleStyle.Render("skillpack") + SubtitleStyle.Render(" - skill document packaging") + `

skillpack reads a skill document (markdown with a YAML frontmatter
header), follows every local file it references - inline links, fenced
code blocks with a file= annotation, and whole directories - and packages
the result as a directory tree, a flattened layout, or a single zip
container.

` + SubtitleStyle.Render("Examples:") + `
  skillpack pack SKILL.md                     Package into the default output
  skillpack pack SKILL.md -f flat -o out/     Flatten into out/
  skillpack pack SKILL.md --list              Dry run: list the trace
  skillpack validate SKILL.md                 Check header, references, collisions
  skillpack info SKILL.md                     Show header and trace summary`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/skillpack/config.yaml)")

	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(infoCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads the config file and environment before any command.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}

	loaded, err := config.Load()
	if err != nil {
		// Config problems should not block packaging; warn and continue
		// with defaults.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}
	cfg = loaded

	if !verbose {
		verbose = cfg.UI.Verbose
	}
}

// newLogger builds the CLI logger; debug level when verbose is on.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "skillpack",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render their suggestions; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
