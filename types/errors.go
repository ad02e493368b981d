package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// Scene-level: absorbed by the scheduler, the topic continues.
	ErrUnmatchedScene      = errors.New("unmatched scene")
	ErrSceneRenderFailed   = errors.New("scene render failed")
	ErrSceneAudioFailed    = errors.New("scene audio failed")
	ErrSceneAssemblyFailed = errors.New("scene assembly failed")

	// Topic-level: recorded in the topic's PipelineResult, the run continues.
	ErrNoArtifactsProduced       = errors.New("no artifacts produced")
	ErrConcatenationFailed       = errors.New("concatenation failed")
	ErrMalformedProviderResponse = errors.New("malformed provider response")

	// Run-level: aborts before any topic is attempted.
	ErrMissingCredential = errors.New("missing credential")
)

// SceneFailure records why one scene produced no clip
type SceneFailure struct {
	SceneID int
	Err     error
}

func (f SceneFailure) Error() string {
	return fmt.Sprintf("scene %d: %v", f.SceneID, f.Err)
}

func (f SceneFailure) Unwrap() error { return f.Err }

// Reason returns the taxonomy name of the failure
func (f SceneFailure) Reason() string {
	switch {
	case errors.Is(f.Err, ErrUnmatchedScene):
		return "UnmatchedScene"
	case errors.Is(f.Err, ErrSceneRenderFailed):
		return "SceneRenderFailed"
	case errors.Is(f.Err, ErrSceneAudioFailed):
		return "SceneAudioFailed"
	case errors.Is(f.Err, ErrSceneAssemblyFailed):
		return "SceneAssemblyFailed"
	}
	return "Unknown"
}

type sceneFailureJSON struct {
	SceneID int    `json:"scene_id"`
	Reason  string `json:"reason"`
	Error   string `json:"error"`
}

// restoredError is a failure read back from JSON: the message as written,
// still matching its sentinel with errors.Is
type restoredError struct {
	kind error
	msg  string
}

func (e *restoredError) Error() string { return e.msg }
func (e *restoredError) Unwrap() error { return e.kind }

var reasonSentinels = map[string]error{
	"UnmatchedScene":      ErrUnmatchedScene,
	"SceneRenderFailed":   ErrSceneRenderFailed,
	"SceneAudioFailed":    ErrSceneAudioFailed,
	"SceneAssemblyFailed": ErrSceneAssemblyFailed,
}

// MarshalJSON writes the failure with its reason so saved results stay readable
func (f SceneFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(sceneFailureJSON{f.SceneID, f.Reason(), msg})
}

// UnmarshalJSON restores a failure written by MarshalJSON
func (f *SceneFailure) UnmarshalJSON(data []byte) error {
	var raw sceneFailureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.SceneID = raw.SceneID
	f.Err = &restoredError{kind: reasonSentinels[raw.Reason], msg: raw.Error}
	return nil
}
