package types

// Topic is one item of the run: a problem to turn into a tutorial video
type Topic struct {
	Title       string `json:"title" yaml:"title"`
	Difficulty  string `json:"difficulty" yaml:"difficulty"`
	Category    string `json:"category" yaml:"category"`
	Link        string `json:"link,omitempty" yaml:"link"`
	Description string `json:"description" yaml:"description"`
}

// ScriptMetadata describes the whole video. Topic is always set.
type ScriptMetadata struct {
	Title      string `json:"title"`
	Duration   string `json:"duration"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
	Theme      string `json:"theme"`
}

// ScenePlan is one narrated scene of the script
type ScenePlan struct {
	SceneID     int     `json:"scene_id"`
	Timestamp   string  `json:"timestamp"`
	Title       string  `json:"title"`
	Script      string  `json:"script"` // narration text
	Focus       string  `json:"focus,omitempty"`
	DurationSec float64 `json:"duration_sec"`
}

// Script is the validated scene-by-scene script for one topic
type Script struct {
	Metadata ScriptMetadata `json:"metadata"`
	Scenes   []ScenePlan    `json:"scenes"`
}

// SceneVisual is the renderable markup for one scene
type SceneVisual struct {
	SceneID int    `json:"scene_id"`
	HTML    string `json:"html"`
}

// VisualSet is the validated visual payload, keyed by scene_id like Script
type VisualSet struct {
	Metadata map[string]any `json:"metadata"`
	Scenes   []SceneVisual  `json:"scenes"`
}

// ScenePair is a script scene matched to its visual by scene_id
type ScenePair struct {
	Plan   ScenePlan
	Visual SceneVisual
}

// SceneArtifact holds the files produced for one scene.
// ImagePath and AudioPath are transient and gone once the scene finishes.
type SceneArtifact struct {
	SceneID     int     `json:"scene_id"`
	Title       string  `json:"title"`
	ImagePath   string  `json:"image_path,omitempty"`
	AudioPath   string  `json:"audio_path,omitempty"`
	ClipPath    string  `json:"clip_path"`
	DurationSec float64 `json:"duration_sec"`
}

// BatchResult is the outcome of scheduling every scene of one topic
type BatchResult struct {
	Clips    []SceneArtifact `json:"clips"`
	Failures []SceneFailure  `json:"failures"`
	Batches  int             `json:"batches"`
}

// ClipPaths returns the clip files in scene order
func (r *BatchResult) ClipPaths() []string {
	paths := make([]string, 0, len(r.Clips))
	for _, c := range r.Clips {
		paths = append(paths, c.ClipPath)
	}
	return paths
}

// FailedIDs returns the scene ids that produced no clip
func (r *BatchResult) FailedIDs() []int {
	ids := make([]int, 0, len(r.Failures))
	for _, f := range r.Failures {
		ids = append(ids, f.SceneID)
	}
	return ids
}

// PipelineResult is the per-topic record returned by the driver
type PipelineResult struct {
	Topic         string `json:"topic"`
	Success       bool   `json:"success"`
	Skipped       bool   `json:"skipped,omitempty"`
	OutputDir     string `json:"output_dir,omitempty"`
	VideoPath     string `json:"video_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	VideoURL      string `json:"video_url,omitempty"`
	UploadError   string `json:"upload_error,omitempty"`
	Scenes        int    `json:"scenes"`
	Clips         int    `json:"clips"`
	Batches       int    `json:"batches"`
	FailedScenes  []int  `json:"failed_scenes,omitempty"`
	Error         string `json:"error,omitempty"`
	StartedAt     string `json:"started_at"`
	CompletedAt   string `json:"completed_at"`

	// SceneFailures says why each of FailedScenes produced no clip
	SceneFailures []SceneFailure `json:"scene_failures,omitempty"`
}
