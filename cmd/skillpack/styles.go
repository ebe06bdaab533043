// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/charmbracelet/lipgloss"

// Color palette - shared hex colors for consistent theming across all CLI
// output, tuned for dark terminal backgrounds.
const (
	// ColorPrimary is purple - titles and primary emphasis.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray - subtitles and de-emphasized content.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green - success states and positive outcomes.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red - errors and failures.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber - warnings and attention-needed items.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue - paths, commands, and interactive elements.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

// Base styles built from the palette.
var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages and caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// PathStyle is for file and directory paths.
	PathStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// DetailStyle is for indented supplementary details.
	DetailStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			PaddingLeft(2)
)

// Icons shared by the command output.
var (
	successIcon = SuccessStyle.Render("✓")
	errorIcon   = ErrorStyle.Render("✗")
	warningIcon = WarningStyle.Render("!")
	infoIcon    = SubtitleStyle.Render("•")
)
