package batch

import (
	"errors"
	"testing"

	"leetcode-video-pipeline/types"
)

func TestPairBySceneID(t *testing.T) {
	script := &types.Script{Scenes: []types.ScenePlan{
		{SceneID: 1, Script: "a"},
		{SceneID: 2, Script: "b"},
		{SceneID: 3, Script: "c"},
		{SceneID: 4, Script: "d"},
	}}
	// positions deliberately scrambled; scene 3 has blank markup, 9 has no plan
	visuals := &types.VisualSet{Scenes: []types.SceneVisual{
		{SceneID: 4, HTML: "<p>4</p>"},
		{SceneID: 9, HTML: "<p>9</p>"},
		{SceneID: 1, HTML: "<p>1</p>"},
		{SceneID: 3, HTML: "  "},
	}}

	pairs, unmatched := Pair(script, visuals)
	if len(pairs) != 2 || pairs[0].Plan.SceneID != 1 || pairs[1].Plan.SceneID != 4 {
		t.Fatalf("pairs = %+v", pairs)
	}
	for _, p := range pairs {
		if p.Plan.SceneID != p.Visual.SceneID {
			t.Errorf("pair mismatched: plan %d visual %d", p.Plan.SceneID, p.Visual.SceneID)
		}
	}

	wantIDs := []int{2, 3, 9}
	if len(unmatched) != len(wantIDs) {
		t.Fatalf("unmatched = %v", unmatched)
	}
	for i, f := range unmatched {
		if f.SceneID != wantIDs[i] {
			t.Errorf("unmatched[%d] = %d, want %d", i, f.SceneID, wantIDs[i])
		}
		if !errors.Is(f, types.ErrUnmatchedScene) {
			t.Errorf("scene %d: %v is not ErrUnmatchedScene", f.SceneID, f.Err)
		}
	}
}

func TestPairNilInputs(t *testing.T) {
	pairs, unmatched := Pair(nil, nil)
	if len(pairs) != 0 || len(unmatched) != 0 {
		t.Errorf("Pair(nil, nil) = %v, %v", pairs, unmatched)
	}

	script := &types.Script{Scenes: []types.ScenePlan{{SceneID: 1, Script: "a"}}}
	_, unmatched = Pair(script, nil)
	if len(unmatched) != 1 || unmatched[0].SceneID != 1 {
		t.Errorf("unmatched = %v", unmatched)
	}
}
