package themes

// DefaultName is used whenever a stored theme name is unknown.
const DefaultName = "default"

// Colors are the style tokens a client applies for a theme.
type Colors struct {
	Primary          string `json:"primary"`
	PrimaryDark      string `json:"primaryDark"`
	Secondary        string `json:"secondary"`
	SecondaryDark    string `json:"secondaryDark"`
	Accent           string `json:"accent"`
	AccentDark       string `json:"accentDark"`
	Background       string `json:"background"`
	BackgroundDark   string `json:"backgroundDark"`
	Foreground       string `json:"foreground"`
	ForegroundDark   string `json:"foregroundDark"`
	GradientFrom     string `json:"gradientFrom"`
	GradientVia      string `json:"gradientVia"`
	GradientTo       string `json:"gradientTo"`
	GradientFromDark string `json:"gradientFromDark"`
	GradientViaDark  string `json:"gradientViaDark"`
	GradientToDark   string `json:"gradientToDark"`
}

// Theme is a named palette selectable by administrators.
type Theme struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Colors Colors `json:"colors"`
}

// palette fills the tokens shared by every light theme.
func palette(primary, primaryDark, secondary, secondaryDark, accent, accentDark string, gradient, gradientDark [3]string) Colors {
	return Colors{
		Primary:          primary,
		PrimaryDark:      primaryDark,
		Secondary:        secondary,
		SecondaryDark:    secondaryDark,
		Accent:           accent,
		AccentDark:       accentDark,
		Background:       "#ffffff",
		BackgroundDark:   "#0a0a0a",
		Foreground:       "#171717",
		ForegroundDark:   "#ededed",
		GradientFrom:     gradient[0],
		GradientVia:      gradient[1],
		GradientTo:       gradient[2],
		GradientFromDark: gradientDark[0],
		GradientViaDark:  gradientDark[1],
		GradientToDark:   gradientDark[2],
	}
}

var catalogue = []Theme{
	{Name: "default", Label: "Default Purple", Colors: palette(
		"#4f46e5", "#6366f1", "#9333ea", "#a855f7", "#06b6d4", "#22d3ee",
		[3]string{"#f3e8ff", "#dbeafe", "#e0e7ff"}, [3]string{"#1f2937", "#1f2937", "#312e81"})},
	{Name: "ocean", Label: "Ocean Blue", Colors: palette(
		"#0284c7", "#0ea5e9", "#0891b2", "#06b6d4", "#3b82f6", "#60a5fa",
		[3]string{"#f0f9ff", "#e0f2fe", "#bae6fd"}, [3]string{"#1e293b", "#0c4a6e", "#164e63"})},
	{Name: "forest", Label: "Forest Green", Colors: palette(
		"#16a34a", "#22c55e", "#15803d", "#16a34a", "#10b981", "#34d399",
		[3]string{"#f0fdf4", "#dcfce7", "#bbf7d0"}, [3]string{"#1f2937", "#14532d", "#064e3b"})},
	{Name: "sunset", Label: "Sunset Orange", Colors: palette(
		"#ea580c", "#fb923c", "#dc2626", "#ef4444", "#f59e0b", "#fbbf24",
		[3]string{"#fff7ed", "#fed7aa", "#fef3c7"}, [3]string{"#1f2937", "#7c2d12", "#78350f"})},
	{Name: "rose", Label: "Rose Pink", Colors: palette(
		"#e11d48", "#fb7185", "#be123c", "#e11d48", "#ec4899", "#f472b6",
		[3]string{"#fff1f2", "#fce7f3", "#fce7f3"}, [3]string{"#1f2937", "#881337", "#831843"})},
	{Name: "midnight", Label: "Midnight", Colors: palette(
		"#6366f1", "#818cf8", "#8b5cf6", "#a78bfa", "#06b6d4", "#22d3ee",
		[3]string{"#1e1b4b", "#312e81", "#1e3a8a"}, [3]string{"#0f172a", "#1e1b4b", "#1e3a8a"})},
}

// All returns the catalogue in display order.
func All() []Theme {
	out := make([]Theme, len(catalogue))
	copy(out, catalogue)
	return out
}

// Get returns the named theme, falling back to the default theme.
func Get(name string) Theme {
	if t, ok := Lookup(name); ok {
		return t
	}
	t, _ := Lookup(DefaultName)
	return t
}

// Lookup reports whether name is a known theme.
func Lookup(name string) (Theme, bool) {
	for _, t := range catalogue {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}
