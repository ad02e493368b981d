package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"leetcode-video-pipeline/types"
)

// Rules bound what counts as a usable provider response
type Rules struct {
	MinScenes       int
	MinSceneSec     float64
	DefaultSceneSec float64
}

// DefaultRules: at least 6 scenes, 5 s floor, 15 s when timing is unreadable
func DefaultRules() Rules {
	return Rules{MinScenes: 6, MinSceneSec: 5, DefaultSceneSec: 15}
}

var fenceRe = regexp.MustCompile("(?s)```(?:json|html)?\\s*(.*?)\\s*```")

// ExtractFenced returns the body of the first markdown code fence, or the
// trimmed input when there is none
func ExtractFenced(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

type envelope struct {
	Metadata json.RawMessage `json:"metadata"`
	Scenes   json.RawMessage `json:"scenes"`
}

type rawScriptScene struct {
	SceneID   json.RawMessage `json:"scene_id"`
	Timestamp string          `json:"timestamp"`
	Title     string          `json:"title"`
	Script    string          `json:"script"`
	Focus     string          `json:"focus"`
}

type rawVisualScene struct {
	SceneID json.RawMessage `json:"scene_id"`
	HTML    string          `json:"html"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrMalformedProviderResponse, fmt.Sprintf(format, args...))
}

// decodeEnvelope checks the metadata object and scenes array are present and
// the scene count meets the minimum
func decodeEnvelope(text string, minScenes int) (envelope, int, error) {
	var env envelope
	body := ExtractFenced(text)
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return env, 0, malformed("invalid JSON: %v", err)
	}
	if !isKind(env.Metadata, '{') {
		return env, 0, malformed("missing metadata object")
	}
	if !isKind(env.Scenes, '[') {
		return env, 0, malformed("missing scenes array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(env.Scenes, &items); err != nil {
		return env, 0, malformed("scenes: %v", err)
	}
	if len(items) < minScenes {
		return env, 0, malformed("insufficient scenes: got %d, expected at least %d", len(items), minScenes)
	}
	return env, len(items), nil
}

func isKind(raw json.RawMessage, open byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == open
}

// parseSceneID accepts 3 and "3"; ids must be >= 1
func parseSceneID(raw json.RawMessage) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, fmt.Errorf("scene_id missing")
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("scene_id %q is not an integer", s)
	}
	if id < 1 {
		return 0, fmt.Errorf("scene_id %d is below 1", id)
	}
	return id, nil
}

// ParseScript validates a script response and returns scenes sorted by scene_id
func ParseScript(text string, r Rules) (*types.Script, error) {
	env, _, err := decodeEnvelope(text, r.MinScenes)
	if err != nil {
		return nil, err
	}

	var meta types.ScriptMetadata
	if err := json.Unmarshal(env.Metadata, &meta); err != nil {
		return nil, malformed("metadata: %v", err)
	}
	var raw []rawScriptScene
	if err := json.Unmarshal(env.Scenes, &raw); err != nil {
		return nil, malformed("scenes: %v", err)
	}

	script := &types.Script{Metadata: meta}
	seen := make(map[int]bool, len(raw))
	for i, s := range raw {
		id, err := parseSceneID(s.SceneID)
		if err != nil {
			return nil, malformed("scene %d: %v", i+1, err)
		}
		if seen[id] {
			return nil, malformed("duplicate scene_id %d", id)
		}
		seen[id] = true
		script.Scenes = append(script.Scenes, types.ScenePlan{
			SceneID:     id,
			Timestamp:   s.Timestamp,
			Title:       strings.TrimSpace(s.Title),
			Script:      strings.TrimSpace(s.Script),
			Focus:       s.Focus,
			DurationSec: ParseTimestamp(s.Timestamp, r),
		})
	}
	sort.Slice(script.Scenes, func(i, j int) bool {
		return script.Scenes[i].SceneID < script.Scenes[j].SceneID
	})
	return script, nil
}

// ParseVisuals validates a visual response. Scenes with blank html are kept
// so pairing can report them as unmatched.
func ParseVisuals(text string, r Rules) (*types.VisualSet, error) {
	env, _, err := decodeEnvelope(text, r.MinScenes)
	if err != nil {
		return nil, err
	}

	set := &types.VisualSet{}
	if err := json.Unmarshal(env.Metadata, &set.Metadata); err != nil {
		return nil, malformed("metadata: %v", err)
	}
	var raw []rawVisualScene
	if err := json.Unmarshal(env.Scenes, &raw); err != nil {
		return nil, malformed("scenes: %v", err)
	}

	seen := make(map[int]bool, len(raw))
	for i, s := range raw {
		id, err := parseSceneID(s.SceneID)
		if err != nil {
			return nil, malformed("visual %d: %v", i+1, err)
		}
		if seen[id] {
			return nil, malformed("duplicate visual scene_id %d", id)
		}
		seen[id] = true
		set.Scenes = append(set.Scenes, types.SceneVisual{SceneID: id, HTML: strings.TrimSpace(s.HTML)})
	}
	sort.Slice(set.Scenes, func(i, j int) bool {
		return set.Scenes[i].SceneID < set.Scenes[j].SceneID
	})
	return set, nil
}

// ParseTimestamp turns "MM:SS-MM:SS" into a duration in seconds, floored at
// r.MinSceneSec. Anything unreadable gets r.DefaultSceneSec.
func ParseTimestamp(ts string, r Rules) float64 {
	start, end, ok := strings.Cut(strings.TrimSpace(ts), "-")
	if !ok {
		return r.DefaultSceneSec
	}
	s, err1 := clockSeconds(start)
	e, err2 := clockSeconds(end)
	if err1 != nil || err2 != nil {
		return r.DefaultSceneSec
	}
	return max(r.MinSceneSec, e-s)
}

// clockSeconds reads "SS", "MM:SS" or "HH:MM:SS"
func clockSeconds(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad clock %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}
