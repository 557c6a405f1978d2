// Package theme provides the semantic colors used by the geoform UI.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines the semantic colors of the UI. Every method returns an
// AdaptiveColor so light and dark terminals both render legibly.
type Theme interface {
	Primary() lipgloss.AdaptiveColor   // header background, focused borders
	Secondary() lipgloss.AdaptiveColor // field labels
	Accent() lipgloss.AdaptiveColor    // selected option, ids

	Error() lipgloss.AdaptiveColor
	Warning() lipgloss.AdaptiveColor
	Success() lipgloss.AdaptiveColor
	Info() lipgloss.AdaptiveColor

	Text() lipgloss.AdaptiveColor
	TextMuted() lipgloss.AdaptiveColor // placeholders, disabled selectors

	Background() lipgloss.AdaptiveColor
	BackgroundSecondary() lipgloss.AdaptiveColor // overlays, open picker

	BorderNormal() lipgloss.AdaptiveColor
	BorderFocused() lipgloss.AdaptiveColor
}
