// Package narrative is the Narrative State Engine (C12): CRUD over
// per-(scene, character) state, deterministic forward propagation with
// decay, and event-driven downstream invalidation.
package narrative

import "github.com/storyforge/orchestrator/internal/core"

const defaultInjuryCountdown = 2

var injurySeverityDecay = map[string]string{
	"severe": "moderate", "moderate": "minor", "minor": "healed", "healed": "healed",
}

// decayInjury steps one injury toward healed; a nil return means the
// injury is dropped from the state entirely.
func decayInjury(inj core.Injury) *core.Injury {
	if inj.Severity == "permanent" {
		return &inj
	}
	if inj.Severity == "healed" {
		return nil
	}

	countdown := inj.Countdown
	if countdown == 0 {
		countdown = defaultInjuryCountdown
	}
	countdown--
	if countdown > 0 {
		inj.Countdown = countdown
		return &inj
	}

	next, ok := injurySeverityDecay[inj.Severity]
	if !ok || next == "healed" {
		return nil
	}
	inj.Severity = next
	inj.Countdown = defaultInjuryCountdown
	return &inj
}

func decayInjuries(injuries []core.Injury) []core.Injury {
	var out []core.Injury
	for _, inj := range injuries {
		if d := decayInjury(inj); d != nil {
			out = append(out, *d)
		}
	}
	return out
}

var emotionDecay = map[string]string{
	"furious": "angry", "angry": "irritated", "irritated": "calm",
	"threatening": "irritated", "nervous": "uneasy", "uneasy": "calm", "calm": "calm",
	"ecstatic": "happy", "happy": "content", "content": "calm",
	"terrified": "scared", "scared": "anxious", "anxious": "calm",
	"devastated": "sad", "sad": "melancholy", "melancholy": "calm",
	"shocked": "surprised", "surprised": "calm",
	"disgusted": "uncomfortable", "uncomfortable": "calm",
	"determined": "focused", "focused": "calm",
	"serene": "calm", "embarrassed": "uncomfortable",
}

func decayEmotion(state string) string {
	if next, ok := emotionDecay[state]; ok {
		return next
	}
	return "calm"
}

var bodyStateDecay = map[core.BodyState]core.BodyState{
	core.BodyWet:    core.BodyDamp,
	core.BodyDamp:   core.BodyClean,
	core.BodyBloody: core.BodyStained,
	core.BodyStained: core.BodyClean,
	core.BodyDirty:  core.BodyDusty,
	core.BodyDusty:  core.BodyClean,
	core.BodySweaty: core.BodyClean,
}

func decayBodyState(state core.BodyState) core.BodyState {
	if state == "" {
		return core.BodyClean
	}
	if next, ok := bodyStateDecay[state]; ok {
		return next
	}
	return core.BodyClean
}

var energyDecay = map[core.EnergyLevel]core.EnergyLevel{
	core.EnergyExhausted: core.EnergyTired, core.EnergyTired: core.EnergyNormal,
	core.EnergyHyperactive: core.EnergyEnergized, core.EnergyEnergized: core.EnergyNormal,
}

func decayEnergy(level core.EnergyLevel) core.EnergyLevel {
	if level == "" {
		return core.EnergyNormal
	}
	if next, ok := energyDecay[level]; ok {
		return next
	}
	return core.EnergyNormal
}

// applyDecay advances one scene-step of decay on every decaying field,
// leaving clothing, hair_state, accessories, carrying,
// relationship_context, and location_in_scene untouched.
func applyDecay(state core.CharacterSceneState) core.CharacterSceneState {
	state.Injuries = decayInjuries(state.Injuries)
	state.EmotionalState = decayEmotion(state.EmotionalState)
	state.BodyState = decayBodyState(state.BodyState)
	state.EnergyLevel = decayEnergy(state.EnergyLevel)
	return state
}
