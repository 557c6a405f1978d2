package theme

// Dusk is the default palette.
var Dusk = Palette{
	PrimarySwatch:             Swatch{Light: "#5B4BC4", Dark: "#8B7CF6"},
	SecondarySwatch:           Swatch{Light: "#2F6FB0", Dark: "#6CB6FF"},
	AccentSwatch:              Swatch{Light: "#B7791F", Dark: "#F6C177"},
	ErrorSwatch:               Swatch{Light: "#C53030", Dark: "#FF7B86"},
	WarningSwatch:             Swatch{Light: "#C05621", Dark: "#FFA657"},
	SuccessSwatch:             Swatch{Light: "#2F855A", Dark: "#7EE787"},
	InfoSwatch:                Swatch{Light: "#2C7A7B", Dark: "#79C0FF"},
	TextSwatch:                Swatch{Light: "#1A202C", Dark: "#E6EDF3"},
	TextMutedSwatch:           Swatch{Light: "#718096", Dark: "#7D8590"},
	BackgroundSwatch:          Swatch{Light: "#FFFFFF", Dark: "#161B22"},
	BackgroundSecondarySwatch: Swatch{Light: "#EDF2F7", Dark: "#21262D"},
	BorderNormalSwatch:        Swatch{Light: "#CBD5E0", Dark: "#30363D"},
	BorderFocusedSwatch:       Swatch{Light: "#5B4BC4", Dark: "#8B7CF6"},
}

// Nord uses the Nord palette (https://www.nordtheme.com).
var Nord = Palette{
	PrimarySwatch:             Swatch{Light: "#5E81AC", Dark: "#88C0D0"},
	SecondarySwatch:           Swatch{Light: "#81A1C1", Dark: "#81A1C1"},
	AccentSwatch:              Swatch{Light: "#8FBCBB", Dark: "#8FBCBB"},
	ErrorSwatch:               Swatch{Light: "#BF616A", Dark: "#BF616A"},
	WarningSwatch:             Swatch{Light: "#D08770", Dark: "#D08770"},
	SuccessSwatch:             Swatch{Light: "#A3BE8C", Dark: "#A3BE8C"},
	InfoSwatch:                Swatch{Light: "#5E81AC", Dark: "#88C0D0"},
	TextSwatch:                Swatch{Light: "#2E3440", Dark: "#ECEFF4"},
	TextMutedSwatch:           Swatch{Light: "#4C566A", Dark: "#D8DEE9"},
	BackgroundSwatch:          Swatch{Light: "#ECEFF4", Dark: "#2E3440"},
	BackgroundSecondarySwatch: Swatch{Light: "#E5E9F0", Dark: "#3B4252"},
	BorderNormalSwatch:        Swatch{Light: "#D8DEE9", Dark: "#434C5E"},
	BorderFocusedSwatch:       Swatch{Light: "#5E81AC", Dark: "#88C0D0"},
}

// Paper is a high contrast palette for light terminals and screenshots.
var Paper = Palette{
	PrimarySwatch:             Swatch{Light: "#000000", Dark: "#FFFFFF"},
	SecondarySwatch:           Swatch{Light: "#333333", Dark: "#CCCCCC"},
	AccentSwatch:              Swatch{Light: "#0000AA", Dark: "#AAAAFF"},
	ErrorSwatch:               Swatch{Light: "#AA0000", Dark: "#FF5555"},
	WarningSwatch:             Swatch{Light: "#AA5500", Dark: "#FFAA55"},
	SuccessSwatch:             Swatch{Light: "#00AA00", Dark: "#55FF55"},
	InfoSwatch:                Swatch{Light: "#0055AA", Dark: "#55AAFF"},
	TextSwatch:                Swatch{Light: "#000000", Dark: "#FFFFFF"},
	TextMutedSwatch:           Swatch{Light: "#666666", Dark: "#999999"},
	BackgroundSwatch:          Swatch{Light: "#FFFFFF", Dark: "#000000"},
	BackgroundSecondarySwatch: Swatch{Light: "#F0F0F0", Dark: "#1A1A1A"},
	BorderNormalSwatch:        Swatch{Light: "#999999", Dark: "#666666"},
	BorderFocusedSwatch:       Swatch{Light: "#000000", Dark: "#FFFFFF"},
}

func init() {
	RegisterTheme("dusk", Dusk)
	RegisterTheme("nord", Nord)
	RegisterTheme("paper", Paper)
}
