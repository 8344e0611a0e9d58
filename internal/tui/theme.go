package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"teamboard/internal/model"
	"teamboard/internal/statusutil"
)

// The TUI must stay readable on light and dark backgrounds, so colors are
// adaptive and "faint" is only applied on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted          = ac("240", "243")
	colorChromeMutedFg  = ac("240", "245")
	colorSelectedBg     = ac("#e9e9e9", "#262626")
	colorSelectedFg     = ac("235", "255")
	colorSelectedBorder = ac("232", "255")
	colorCardBorder     = ac("250", "243")
	colorSurfaceFg      = ac("235", "252")
	colorAccent         = ac("27", "62")
	colorCardMetaFg     = ac("238", "250")
	colorErrorBg        = ac("196", "160")
	colorErrorFg        = ac("255", "255")

	// Status colors follow the web badges: gray, blue, red, green.
	statusColors = map[string]lipgloss.AdaptiveColor{
		"TODO":        ac("244", "246"),
		"IN_PROGRESS": ac("27", "75"),
		"BLOCKED":     ac("160", "203"),
		"DONE":        ac("28", "114"),
	}
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
}

func styleHeader() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorChromeMutedFg)
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg)
}

func styleBanner() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorErrorBg).Foreground(colorErrorFg).Padding(0, 1)
}

func styleKey() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
}

// statusBadge renders a status as a colored label, e.g. "[In Progress]".
func statusBadge[S ~string](s S) string {
	c, ok := statusColors[string(s)]
	if !ok {
		c = colorMuted
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render("[" + statusutil.Label(s) + "]")
}

func progressColor(t model.TeamTask) lipgloss.AdaptiveColor {
	if t.Progress() >= 100 {
		return statusColors["DONE"]
	}
	return colorCardMetaFg
}

// applyColorProfilePreference sets Lip Gloss's color profile for the TUI.
// Only NO_COLOR is honored; otherwise the terminal's capabilities decide.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection.
//
// Priority:
// 1) TEAMBOARD_TUI_THEME=light|dark|auto
// 2) COLORFGBG heuristic ("fg;bg")
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TEAMBOARD_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
