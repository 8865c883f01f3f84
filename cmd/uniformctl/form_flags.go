package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"finitefield.org/uniform-studio/internal/uniform"
)

// formFlags mirrors the design form. Unset flags stay absent so the payload
// builder applies its own fallbacks.
type formFlags struct {
	keyword        string
	sport          string
	style          string
	playerName     string
	playerNumber   string
	advanced       bool
	nameStyle      string
	namePosition   string
	nameUppercase  bool
	nameShadow     bool
	numberSize     string
	numberPosition string
}

func (f *formFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.keyword, "keyword", "k", "", "design theme keyword")
	fs.StringVar(&f.sport, "sport", "", "sport (baseball, soccer, basketball, volleyball)")
	fs.StringVar(&f.style, "style", "", "uniform style (short_sleeve_tshirt, long_sleeve_tshirt, sleeveless, button_jersey)")
	fs.StringVar(&f.playerName, "player-name", "", "player name printed on the uniform")
	fs.StringVar(&f.playerNumber, "player-number", "", "player number, 0-99")
	fs.BoolVar(&f.advanced, "advanced", false, "apply the advanced options below")
	fs.StringVar(&f.nameStyle, "name-style", "", "name lettering (english, korean)")
	fs.StringVar(&f.namePosition, "name-position", "", "name position (back, front)")
	fs.BoolVar(&f.nameUppercase, "name-uppercase", true, "print the name in capitals")
	fs.BoolVar(&f.nameShadow, "name-shadow", false, "add a drop shadow to the name")
	fs.StringVar(&f.numberSize, "number-size", "", "number size (small, medium, large)")
	fs.StringVar(&f.numberPosition, "number-position", "", "number position (back, front, both)")
}

func (f *formFlags) state(fs *pflag.FlagSet) uniform.FormState {
	field := func(name, value string) uniform.Field {
		if !fs.Changed(name) {
			return uniform.Field{}
		}
		return uniform.Given(value)
	}
	return uniform.FormState{
		Keyword:      field("keyword", f.keyword),
		Sport:        field("sport", f.sport),
		Style:        field("style", f.style),
		PlayerName:   field("player-name", f.playerName),
		PlayerNumber: field("player-number", f.playerNumber),
		AdvancedOpen: f.advanced,
		Advanced: uniform.Advanced{
			NameStyle:      field("name-style", f.nameStyle),
			NamePosition:   field("name-position", f.namePosition),
			NameUppercase:  f.nameUppercase,
			NameShadow:     f.nameShadow,
			NumberSize:     field("number-size", f.numberSize),
			NumberPosition: field("number-position", f.numberPosition),
		},
	}
}
