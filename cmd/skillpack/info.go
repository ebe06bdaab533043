// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/bikeshaving/skillpack/internal/packager"
	"github.com/bikeshaving/skillpack/internal/trace"
)

// infoRender enables rendering the document body in the terminal.
var infoRender bool

// infoCmd shows the header and trace summary of a skill document.
var infoCmd = &cobra.Command{
	Use:   "info <document>",
	Short: "Show the header and trace summary of a skill document",
	Long: `Show the parsed header fields of a skill document along with a summary
of its traced references, grouped by category.

Examples:
  skillpack info SKILL.md
  skillpack info SKILL.md --render`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoRender, "render", false, "render the document body in the terminal")
}

func runInfo(cmd *cobra.Command, args []string) error {
	report, err := packager.Validate(args[0], packager.Options{Logger: newLogger()})
	if err != nil {
		return fail(cmd, err)
	}

	header := report.Document.Header
	fmt.Println(TitleStyle.Render("Skill Document"))
	fmt.Printf("%s Path: %s\n", infoIcon, PathStyle.Render(report.Document.Path))
	if header.Name != "" {
		fmt.Printf("%s Name: %s\n", infoIcon, header.Name)
	}
	if header.Description != "" {
		fmt.Printf("%s Description: %s\n", infoIcon, header.Description)
	}
	if header.License != "" {
		fmt.Printf("%s License: %s\n", infoIcon, header.License)
	}
	if len(header.AllowedTools) > 0 {
		fmt.Printf("%s Allowed tools: %s\n", infoIcon, strings.Join(header.AllowedTools, ", "))
	}
	if header.Compatibility != "" {
		fmt.Printf("%s Compatibility: %s\n", infoIcon, header.Compatibility)
	}
	if len(header.Metadata) > 0 {
		keys := make([]string, 0, len(header.Metadata))
		for key := range header.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Printf("%s Metadata:\n", infoIcon)
		for _, key := range keys {
			fmt.Printf("    %s: %s\n", key, header.Metadata[key])
		}
	}

	counts := map[trace.Category]int{}
	for _, category := range report.Trace.Categories {
		counts[category]++
	}
	fmt.Println()
	fmt.Printf("%s Traced files: %d (%d script, %d reference-doc, %d asset)\n",
		infoIcon, len(report.Trace.Files),
		counts[trace.CategoryScript], counts[trace.CategoryReference], counts[trace.CategoryAsset])
	if len(report.Trace.Missing) > 0 {
		fmt.Printf("%s Unresolved references: %d\n", warningIcon, len(report.Trace.Missing))
	}

	if infoRender {
		rendered, err := renderMarkdown(string(report.Document.Body))
		if err != nil {
			return fmt.Errorf("failed to render document body: %w", err)
		}
		fmt.Println()
		fmt.Print(rendered)
	}
	return nil
}

// renderMarkdown renders markdown for terminal display using glamour.
func renderMarkdown(body string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(body)
}
