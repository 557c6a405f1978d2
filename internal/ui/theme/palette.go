package theme

import "github.com/charmbracelet/lipgloss"

// Swatch is a light/dark pair of hex colors.
type Swatch struct {
	Light string
	Dark  string
}

func (s Swatch) color() lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: s.Light, Dark: s.Dark}
}

// Palette implements Theme from a flat set of swatches.
type Palette struct {
	PrimarySwatch             Swatch
	SecondarySwatch           Swatch
	AccentSwatch              Swatch
	ErrorSwatch               Swatch
	WarningSwatch             Swatch
	SuccessSwatch             Swatch
	InfoSwatch                Swatch
	TextSwatch                Swatch
	TextMutedSwatch           Swatch
	BackgroundSwatch          Swatch
	BackgroundSecondarySwatch Swatch
	BorderNormalSwatch        Swatch
	BorderFocusedSwatch       Swatch
}

func (p Palette) Primary() lipgloss.AdaptiveColor   { return p.PrimarySwatch.color() }
func (p Palette) Secondary() lipgloss.AdaptiveColor { return p.SecondarySwatch.color() }
func (p Palette) Accent() lipgloss.AdaptiveColor    { return p.AccentSwatch.color() }
func (p Palette) Error() lipgloss.AdaptiveColor     { return p.ErrorSwatch.color() }
func (p Palette) Warning() lipgloss.AdaptiveColor   { return p.WarningSwatch.color() }
func (p Palette) Success() lipgloss.AdaptiveColor   { return p.SuccessSwatch.color() }
func (p Palette) Info() lipgloss.AdaptiveColor      { return p.InfoSwatch.color() }
func (p Palette) Text() lipgloss.AdaptiveColor      { return p.TextSwatch.color() }
func (p Palette) TextMuted() lipgloss.AdaptiveColor { return p.TextMutedSwatch.color() }

func (p Palette) Background() lipgloss.AdaptiveColor { return p.BackgroundSwatch.color() }

func (p Palette) BackgroundSecondary() lipgloss.AdaptiveColor {
	return p.BackgroundSecondarySwatch.color()
}

func (p Palette) BorderNormal() lipgloss.AdaptiveColor  { return p.BorderNormalSwatch.color() }
func (p Palette) BorderFocused() lipgloss.AdaptiveColor { return p.BorderFocusedSwatch.color() }
