package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"leetcode-video-pipeline/types"
)

const scriptInstructions = `Create a concise 8-scene LeetCode tutorial script focused on clear explanations and data structure visualization.

REQUIREMENTS:
- Each scene: 20-25 words of narration (concise and clear)
- Focus on algorithm explanation, not storytelling
- Emphasize data structure operations
- Technical accuracy over engagement tricks
- Direct, educational tone
- At least 6 scenes, scene_id starting at 1 and increasing by 1
- "timestamp" is "MM:SS-MM:SS" and scenes are contiguous

Return ONLY valid JSON, no markdown, no explanation, with this shape:`

const scriptShape = `{
  "metadata": {
    "title": "%s",
    "duration": "6 minutes",
    "difficulty": "%s",
    "topic": "%s",
    "theme": "minimal_tech"
  },
  "scenes": [
    {
      "scene_id": 1,
      "timestamp": "00:00-00:45",
      "title": "Problem Overview",
      "script": "Problem: find two array indices whose values sum to target. Input: array and target. Output: two indices.",
      "focus": "problem_statement"
    }
  ]
}`

const visualInstructions = `Generate minimal, clean HTML for technical LeetCode tutorial scenes. Focus on data structure visualization and code clarity.

DESIGN PRINCIPLES:
- Clean white/light backgrounds, simple sans-serif fonts
- Clear data structure diagrams built from plain HTML and inline CSS
- Minimal colors: #2563eb (blue), #059669 (green), #dc2626 (red), #374151 (gray)
- No animations, no external images or scripts
- Each scene fits a %dx%d canvas without scrolling
- Channel name as simple text in the top-right corner
- Produce exactly one entry per script scene, reusing its scene_id

Return ONLY valid JSON, no markdown, no explanation, with this shape:
{
  "metadata": {"theme": "minimal_clean", "colors": {"primary": "#2563eb", "success": "#059669", "warning": "#dc2626", "text": "#374151", "background": "#ffffff"}},
  "scenes": [{"scene_id": 1, "html": "<div style='...'>...</div>"}]
}

SCRIPT:
`

const thumbnailInstructions = `You are a pixel-perfect thumbnail designer for technical YouTube videos. Generate one complete HTML document with inline CSS for a %dx%d thumbnail.

REQUIREMENTS:
- Clean, eye-catching design, dark background with bright accent colors
- Problem title prominently displayed
- A short code snippet or algorithm hint
- LeetCode difficulty badge (easy green, medium yellow, hard red)
- No external images, fonts or scripts
- NO text overflow; the root element is exactly %dpx by %dpx

Return ONLY the HTML document, starting with <!DOCTYPE html>. No markdown, no explanation.
`

// ScriptPrompt builds the scene-list request for a topic
func ScriptPrompt(topic types.Topic) string {
	var sb strings.Builder
	sb.WriteString(scriptInstructions)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(scriptShape, jsonEscape(topic.Title), jsonEscape(difficultyOf(topic)), jsonEscape(categoryOf(topic))))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("PROBLEM: %s (%s)\n", topic.Title, difficultyOf(topic)))
	sb.WriteString(fmt.Sprintf("CATEGORY: %s\n", categoryOf(topic)))
	if topic.Link != "" {
		sb.WriteString(fmt.Sprintf("LINK: %s\n", topic.Link))
	}
	description := strings.TrimSpace(topic.Description)
	if description == "" {
		description = "A challenging programming problem."
	}
	sb.WriteString(fmt.Sprintf("DESCRIPTION:\n%s\n", description))
	return sb.String()
}

// VisualPrompt builds the markup request for a validated script
func VisualPrompt(script *types.Script, width, height int) string {
	data, _ := json.MarshalIndent(script, "", "  ")
	return fmt.Sprintf(visualInstructions, width, height) + string(data)
}

// ThumbnailPrompt builds the thumbnail document request
func ThumbnailPrompt(script *types.Script, width, height int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(thumbnailInstructions, width, height, width, height))
	sb.WriteString(fmt.Sprintf("\nPROBLEM: %s\n", script.Metadata.Title))
	sb.WriteString(fmt.Sprintf("DIFFICULTY: %s\n", script.Metadata.Difficulty))
	sb.WriteString(fmt.Sprintf("TOPIC: %s\n", script.Metadata.Topic))
	if len(script.Scenes) > 0 {
		sb.WriteString(fmt.Sprintf("OPENING LINE: %s\n", truncate(script.Scenes[0].Script, 120)))
	}
	return sb.String()
}

func difficultyOf(t types.Topic) string {
	if d := strings.TrimSpace(t.Difficulty); d != "" {
		return d
	}
	return "Medium"
}

func categoryOf(t types.Topic) string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return "Data Structures & Algorithms"
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return strings.Trim(string(b), `"`)
}
