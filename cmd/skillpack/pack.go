// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bikeshaving/skillpack/internal/packager"
)

var (
	// packOutput is the explicit output path
	packOutput string
	// packFormat is the output format selector
	packFormat string
	// packArchiveLayout selects the entry naming inside a container
	packArchiveLayout string
	// packList enables the dry-run listing
	packList bool
)

// packCmd packages a skill document into the requested layout.
var packCmd = &cobra.Command{
	Use:   "pack <document>",
	Short: "Package a skill document and its references",
	Long: `Package a skill document together with every local file it references.

Output formats:
  preserve   directory tree with original relative paths
  flat       scripts/, references/, assets/ plus the rewritten document
  archive    a single zip container (original or flattened entry names)
  dist       flat directory and zip container, named from the header's name

Examples:
  skillpack pack SKILL.md
  skillpack pack SKILL.md --format flat --output build/
  skillpack pack SKILL.md --format archive --archive-layout flat
  skillpack pack SKILL.md --list`,
	Args: cobra.ExactArgs(1),
	RunE: runPack,
}

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "output path (default from config, \"dist\")")
	packCmd.Flags().StringVarP(&packFormat, "format", "f", "", "output format: preserve, flat, archive, dist (default from config)")
	packCmd.Flags().StringVar(&packArchiveLayout, "archive-layout", "preserve", "entry naming inside the container: preserve or flat")
	packCmd.Flags().BoolVar(&packList, "list", false, "dry run: list traced files and destinations without writing")
}

func runPack(cmd *cobra.Command, args []string) error {
	docPath := args[0]

	opts, err := buildPackOptions(docPath)
	if err != nil {
		return err
	}

	if packList {
		result, err := packager.Inspect(docPath, opts)
		if err != nil {
			return fail(cmd, err)
		}
		if err := printListing(result, opts); err != nil {
			return fail(cmd, err)
		}
		printMissingWarnings(result)
		return nil
	}

	result, err := packager.Pack(docPath, opts)
	if err != nil {
		return fail(cmd, err)
	}

	fmt.Printf("%s Packaged %s\n", successIcon, PathStyle.Render(result.Document.Path))
	for _, out := range result.Outputs {
		fmt.Printf("%s Output: %s\n", infoIcon, PathStyle.Render(out))
	}
	fmt.Printf("%s Files: %d\n", infoIcon, len(result.Trace.Files))
	printMissingWarnings(result)
	return nil
}

// buildPackOptions resolves flags against the loaded configuration.
func buildPackOptions(docPath string) (packager.Options, error) {
	formatName := packFormat
	if formatName == "" {
		formatName = cfg.Format
	}
	format, err := packager.ParseFormat(formatName)
	if err != nil {
		return packager.Options{}, err
	}

	var archiveFlat bool
	switch packArchiveLayout {
	case "preserve":
	case "flat":
		archiveFlat = true
	default:
		return packager.Options{}, fmt.Errorf("unknown archive layout %q (expected preserve or flat)", packArchiveLayout)
	}

	output := packOutput
	if output == "" {
		output = cfg.OutputDir
		if format == packager.FormatArchive {
			stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
			output = filepath.Join(cfg.OutputDir, stem+packager.DistSuffix)
		}
	}

	return packager.Options{
		Output:      output,
		Format:      format,
		ArchiveFlat: archiveFlat,
		Logger:      newLogger(),
	}, nil
}

// printListing renders the dry-run trace: every discovered file with its
// category and, when the layout flattens, its destination.
func printListing(result *packager.Result, opts packager.Options) error {
	fmt.Println(TitleStyle.Render("Trace"))
	fmt.Printf("%s Document: %s\n", infoIcon, PathStyle.Render(result.Document.Path))

	rels, err := result.Trace.RelFiles()
	if err != nil {
		return err
	}
	for i, rel := range rels {
		category := result.Trace.Categories[result.Trace.Files[i]]
		line := fmt.Sprintf("%s %-13s %s", infoIcon, category, PathStyle.Render(rel))
		if result.PathMap != nil {
			line += SubtitleStyle.Render(" -> " + result.PathMap[rel])
		}
		fmt.Println(line)
	}
	fmt.Printf("%s %d file(s), format %s\n", infoIcon, len(rels), opts.Format)
	return nil
}

// printMissingWarnings reports unresolved references on stderr. They never
// affect the exit status.
func printMissingWarnings(result *packager.Result) {
	for _, missing := range result.Trace.Missing {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningIcon, WarningStyle.Render(missing.String()))
	}
}

// fail prints a formatted fatal error and signals a non-zero exit through
// the command's error path, so fang's cleanup still runs.
func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorIcon, formatErrorForDisplay(err, verbose))
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: 1}
}
