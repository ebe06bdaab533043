// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bikeshaving/skillpack/internal/packager"
)

// validateCmd checks a skill document without writing any output.
var validateCmd = &cobra.Command{
	Use:   "validate <document>",
	Short: "Validate a skill document without packaging it",
	Long: `Validate the header, references, and flattening layout of a skill
document. Every problem found is reported in one run:

  - header fields outside the allow-list (all of them)
  - flattened destination collisions (every colliding group)
  - a missing name field, which blocks dist output
  - unresolved references (warnings only)

Examples:
  skillpack validate SKILL.md`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	docPath := args[0]

	fmt.Println(TitleStyle.Render("Validation"))

	report, err := packager.Validate(docPath, packager.Options{Logger: newLogger()})
	if err != nil {
		return fail(cmd, err)
	}

	fmt.Printf("%s Document: %s\n", infoIcon, PathStyle.Render(report.Document.Path))
	fmt.Printf("%s Traced files: %d\n", infoIcon, len(report.Trace.Files))

	for _, missing := range report.Trace.Missing {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningIcon, WarningStyle.Render(missing.String()))
	}

	problems := 0
	if report.HeaderErr != nil {
		problems++
		fmt.Printf("%s %s\n", errorIcon, report.HeaderErr.Error())
	}
	if report.Collision != nil {
		problems++
		fmt.Printf("%s %s\n", errorIcon, report.Collision.Error())
	}
	if report.MissingName {
		fmt.Printf("%s header has no name field (dist output would fail)\n", warningIcon)
	}

	if report.Clean() {
		fmt.Printf("%s Document is valid\n", successIcon)
		return nil
	}

	fmt.Printf("%s Validation found %d problem(s)\n", errorIcon, problems)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: 1}
}
