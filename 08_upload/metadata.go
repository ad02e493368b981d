package upload

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"leetcode-video-pipeline/types"
)

const (
	titleMaxChars = 100
	maxTags       = 30
)

// Metadata is the snippet and status sent with an upload
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}

// BuildMetadata derives title, tags and a chaptered description from the
// script and the clips that made it into the video. Chapter times come from
// the real clip durations, in clip order.
func BuildMetadata(script *types.Script, clips []types.SceneArtifact) Metadata {
	meta := script.Metadata
	title := meta.Title
	if d := strings.TrimSpace(meta.Difficulty); d != "" {
		title = fmt.Sprintf("%s | LeetCode %s Explained", meta.Title, d)
	}
	if utf8.RuneCountInString(title) > titleMaxChars {
		title = string([]rune(title)[:titleMaxChars-3]) + "..."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Step-by-step walkthrough of %s", meta.Title))
	if meta.Topic != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", meta.Topic))
	}
	sb.WriteString(".\n\n")
	if len(script.Scenes) > 0 {
		sb.WriteString(truncate(script.Scenes[0].Script, 300))
		sb.WriteString("\n\n")
	}

	if len(clips) > 0 {
		sb.WriteString("Chapters:\n")
		var elapsed float64
		for _, c := range clips {
			name := c.Title
			if name == "" {
				name = fmt.Sprintf("Part %d", c.SceneID)
			}
			sb.WriteString(fmt.Sprintf("%s %s\n", chapterTime(elapsed), name))
			elapsed += c.DurationSec
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Subscribe for more algorithm walkthroughs.\n")
	sb.WriteString("Which problem should we cover next? Let us know in the comments.")

	return Metadata{
		Title:       title,
		Description: sb.String(),
		Tags:        buildTags(meta),
	}
}

// chapterTime formats seconds as M:SS, or H:MM:SS past an hour
func chapterTime(sec float64) string {
	total := int(sec)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func buildTags(meta types.ScriptMetadata) []string {
	seen := map[string]bool{}
	var tags []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] || len(tags) >= maxTags {
			return
		}
		seen[key] = true
		tags = append(tags, t)
	}
	add(meta.Title)
	add("leetcode")
	add("leetcode " + strings.ToLower(meta.Difficulty))
	for _, part := range strings.Split(meta.Topic, ",") {
		add(part)
	}
	for _, t := range []string{"coding interview", "algorithms", "data structures", "programming tutorial"} {
		add(t)
	}
	return tags
}

// truncate cuts s to n characters, never inside a multi-byte rune
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
