package genserver

import (
	"fmt"
	"strings"

	"finitefield.org/uniform-studio/internal/uniform"
)

var styleNames = map[string]string{
	"short_sleeve_tshirt": "short-sleeve t-shirt",
	"long_sleeve_tshirt":  "long-sleeve t-shirt",
	"sleeveless":          "sleeveless",
	"button_jersey":       "button-up jersey",
}

var positionNames = map[string]string{
	"back":  "the back",
	"front": "the front",
	"both":  "the front and back",
}

// StyleName returns a readable name for a style value.
func StyleName(style string) string {
	if name, ok := styleNames[style]; ok {
		return name
	}
	return strings.ReplaceAll(strings.TrimSpace(style), "_", " ")
}

// BuildPrompt turns a request into the text prompt sent to the image model.
func BuildPrompt(req uniform.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A professional %s sports uniform with a theme of %s. ", StyleName(req.Style), strings.TrimSpace(req.Keyword))
	b.WriteString("High-quality, detailed, realistic, clean layout, integrated team name, front and back.")

	if sport := strings.TrimSpace(req.Sport); sport != "" {
		fmt.Fprintf(&b, " Designed as a %s uniform.", sport)
	}
	if name := strings.TrimSpace(req.PlayerName); name != "" {
		if v, _ := req.Option(uniform.KeyNameUppercase); v == uniform.FlagOn {
			name = strings.ToUpper(name)
		}
		fmt.Fprintf(&b, " Player name %q on %s", name, position(req, uniform.KeyNamePosition))
		if style, ok := req.Option(uniform.KeyNameStyle); ok && style != "" {
			fmt.Fprintf(&b, " in %s lettering", lettering(style))
		}
		if v, _ := req.Option(uniform.KeyNameShadow); v == uniform.FlagOn {
			b.WriteString(" with a drop shadow")
		}
		b.WriteString(".")
	}
	if number := strings.TrimSpace(req.PlayerNumber); number != "" {
		fmt.Fprintf(&b, " Number %s on %s", number, position(req, uniform.KeyNumberPosition))
		if size, ok := req.Option(uniform.KeyNumberSize); ok && size != "" {
			fmt.Fprintf(&b, " in a %s size", size)
		}
		b.WriteString(".")
	}
	return b.String()
}

func position(req uniform.Request, key string) string {
	v, _ := req.Option(key)
	if name, ok := positionNames[v]; ok {
		return name
	}
	return positionNames["back"]
}

func lettering(style string) string {
	switch style {
	case "english":
		return "English"
	case "korean":
		return "Korean"
	default:
		return style
	}
}
