package extract

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// StylePreset captures the visual contract every generated image must follow.
// It feeds the analysis prompt, so the language model writes image prompts
// that already respect framing, style, and the content-policy denylist.
type StylePreset struct {
	Style  StyleRules  `yaml:"style"`
	Output OutputRules `yaml:"output"`
}

// StyleRules describe the photographic look shared by all scenes.
type StyleRules struct {
	Photorealistic bool   `yaml:"photorealistic"`
	Cinematic      bool   `yaml:"cinematic"`
	ColorGrade     string `yaml:"color_grade"`
	Lighting       string `yaml:"lighting"`
	SkinTexture    string `yaml:"skin_texture"`
	FilmGrain      string `yaml:"film_grain"`
}

// OutputRules describe the required output geometry and what must never
// appear in a generated image.
type OutputRules struct {
	AspectRatio string   `yaml:"aspect_ratio"`
	Resolution  string   `yaml:"resolution"`
	Format      string   `yaml:"format"`
	Disallow    []string `yaml:"disallow"`
}

// Dimensions parses the WxH resolution string. Unparseable values fall back
// to 1920x1080.
func (o OutputRules) Dimensions() (width, height int) {
	width, height = 1920, 1080
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(o.Resolution)), "x", 2)
	if len(parts) != 2 {
		return width, height
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return width, height
	}
	return w, h
}

// DefaultPreset returns the built-in style contract.
func DefaultPreset() StylePreset {
	return StylePreset{
		Style: StyleRules{
			Photorealistic: true,
			Cinematic:      true,
			ColorGrade:     "natural warm",
			Lighting:       "natural warm",
			SkinTexture:    "natural",
			FilmGrain:      "subtle",
		},
		Output: OutputRules{
			AspectRatio: "16:9",
			Resolution:  "1920x1080",
			Format:      "png",
			Disallow:    []string{"collage", "grid", "text", "logo", "watermark"},
		},
	}
}

// LoadPreset reads a YAML preset from path, layering it over the defaults.
// An empty path yields the defaults unchanged.
func LoadPreset(path string) (StylePreset, error) {
	preset := DefaultPreset()
	if path == "" {
		return preset, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return preset, fmt.Errorf("extract: read style preset: %w", err)
	}
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return preset, fmt.Errorf("extract: parse style preset: %w", err)
	}
	return preset, nil
}
