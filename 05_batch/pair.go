package batch

import (
	"fmt"
	"sort"
	"strings"

	"leetcode-video-pipeline/types"
)

// Pair matches script scenes to visuals by scene_id, never by position.
// Script scenes with no visual or blank markup, and visuals with no script
// scene, come back as ErrUnmatchedScene failures. Both lists are sorted by
// scene_id.
func Pair(script *types.Script, visuals *types.VisualSet) ([]types.ScenePair, []types.SceneFailure) {
	byID := make(map[int]types.SceneVisual)
	if visuals != nil {
		for _, v := range visuals.Scenes {
			byID[v.SceneID] = v
		}
	}

	var pairs []types.ScenePair
	var unmatched []types.SceneFailure
	planned := make(map[int]bool)

	if script != nil {
		for _, plan := range script.Scenes {
			planned[plan.SceneID] = true
			v, ok := byID[plan.SceneID]
			switch {
			case !ok:
				unmatched = append(unmatched, types.SceneFailure{
					SceneID: plan.SceneID,
					Err:     fmt.Errorf("%w: no visual for script scene", types.ErrUnmatchedScene),
				})
			case strings.TrimSpace(v.HTML) == "":
				unmatched = append(unmatched, types.SceneFailure{
					SceneID: plan.SceneID,
					Err:     fmt.Errorf("%w: visual has no markup", types.ErrUnmatchedScene),
				})
			default:
				pairs = append(pairs, types.ScenePair{Plan: plan, Visual: v})
			}
		}
	}

	for id := range byID {
		if !planned[id] {
			unmatched = append(unmatched, types.SceneFailure{
				SceneID: id,
				Err:     fmt.Errorf("%w: visual has no script scene", types.ErrUnmatchedScene),
			})
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Plan.SceneID < pairs[j].Plan.SceneID })
	sortFailures(unmatched)
	return pairs, unmatched
}

func sortFailures(fs []types.SceneFailure) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].SceneID < fs[j].SceneID })
}
