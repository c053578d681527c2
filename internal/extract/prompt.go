package extract

import (
	"fmt"
	"strings"
)

// buildAnalysisPrompt renders the instruction block handed to the language
// model. The wording enforces the invariants the rest of the system relies
// on: an exact scene count, contiguous 1-based scene numbers, richly detailed
// prompts in a consistent photographic style, and a JSON-only response.
func buildAnalysisPrompt(script string, sceneCount int, preset StylePreset) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a visual content planner for narrated videos. Analyze the script below and split it into exactly %d scenes, each with an image generation prompt.\n\n", sceneCount)

	b.WriteString("Prompt writing rules:\n")
	b.WriteString("- Start every image_prompt with \"A warm and realistic photo of...\".\n")
	b.WriteString("- Pick the subject from the scene content: people when the script describes actions, food when it describes meals, places or objects when it describes environments or tools. Scenes without people must not contain people.\n")
	b.WriteString("- Each image_prompt must be very specific and detailed (at least 50 words): describe the subject, clothing or materials, colors, lighting direction, mood, and camera angle.\n")
	fmt.Fprintf(&b, "- Every image uses a %s aspect ratio (%s) in a natural, documentary-style composition.\n", preset.Output.AspectRatio, preset.Output.Resolution)

	var styleBits []string
	if preset.Style.Photorealistic {
		styleBits = append(styleBits, "photorealistic")
	}
	if preset.Style.Cinematic {
		styleBits = append(styleBits, "cinematic")
	}
	if preset.Style.ColorGrade != "" {
		styleBits = append(styleBits, preset.Style.ColorGrade+" color grade")
	}
	if preset.Style.Lighting != "" {
		styleBits = append(styleBits, preset.Style.Lighting+" lighting")
	}
	if preset.Style.FilmGrain != "" {
		styleBits = append(styleBits, preset.Style.FilmGrain+" film grain")
	}
	if len(styleBits) > 0 {
		fmt.Fprintf(&b, "- Unified style across all scenes: %s.\n", strings.Join(styleBits, ", "))
	}
	if len(preset.Output.Disallow) > 0 {
		fmt.Fprintf(&b, "- Never include: %s.\n", strings.Join(preset.Output.Disallow, ", "))
	}

	b.WriteString("\nRespond with a JSON array only, no prose, using this shape:\n")
	b.WriteString(`[{"scene_number": 1, "timestamp": "00:00-00:10", "description": "short scene summary", "image_prompt": "A warm and realistic photo of...", "keywords": ["keyword1", "keyword2"]}]`)
	fmt.Fprintf(&b, "\n\nNumber the scenes 1 through %d in script order.\n\nScript:\n%s\n", sceneCount, script)

	return b.String()
}
