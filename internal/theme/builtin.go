package theme

// DefaultFlags are the overlays every built-in theme draws.
var DefaultFlags = Flags{
	MA5:  true,
	MA20: true,
	VWAP: true,
	RSI:  false,
	BOLL: false,
	MACD: true,
}

// DefaultPalette follows the mainland convention of red for up and green for down.
var DefaultPalette = Palette{
	Up:        "red",
	Down:      "green",
	MA5:       "red",
	MA20:      "blue",
	VWAP:      "purple",
	RSI:       "green",
	BOLLUpper: "gray",
	BOLLMid:   "gray",
	BOLLLower: "gray",
	MACDFast:  "blue",
	MACDSlow:  "orange",
	MACDHist:  "red",
}

// DefaultDisplay is the layout shared by most built-in themes: price, volume and
// MACD panels in equal proportion.
func DefaultDisplay(style string) Display {
	return Display{
		Style:       style,
		GridStyle:   "--",
		YOnRight:    true,
		FigWidth:    16,
		FigHeight:   16,
		PanelRatios: []int{3, 3, 3},
		DPI:         300,
		LineWidth:   1.2,
		FontSize:    12,
		LabelSize:   20,
		TitleSize:   40,
		TightLayout: true,
	}
}

// DefaultName is the theme used when none is configured.
const DefaultName = "default"

// Builtin returns the built-in themes.
func Builtin() []Theme {
	classic := DefaultDisplay("classic")
	classic.GridStyle = "-"
	classic.YOnRight = false
	classic.LineWidth = 1.0
	classic.FontSize = 10

	themes := []Theme{
		newBuiltin("default", DefaultDisplay("default")),
		newBuiltin("dark", DefaultDisplay("mike")),
		newBuiltin("classic", classic),
	}
	for _, style := range []string{
		"yahoo", "blueskies", "brasil", "charles", "checkers",
		"mike", "nightclouds", "sas", "starsandstripes",
	} {
		themes = append(themes, newBuiltin(style, DefaultDisplay(style)))
	}
	return themes
}

func newBuiltin(name string, d Display) Theme {
	return Theme{
		Name:       name,
		Indicators: DefaultFlags,
		Colors:     DefaultPalette,
		Display:    d,
	}
}
