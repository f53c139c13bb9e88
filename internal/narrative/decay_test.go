package narrative

import (
	"testing"

	"github.com/storyforge/orchestrator/internal/core"
)

func TestDecayEmotionChain(t *testing.T) {
	chain := []string{"furious", "angry", "irritated", "calm", "calm"}
	state := chain[0]
	for i := 1; i < len(chain); i++ {
		state = decayEmotion(state)
		if state != chain[i] {
			t.Fatalf("step %d: got %q, want %q", i, state, chain[i])
		}
	}
}

func TestDecayEmotionUnknownMapsToCalm(t *testing.T) {
	if got := decayEmotion("bewildered"); got != "calm" {
		t.Fatalf("expected unknown emotion to decay to calm, got %q", got)
	}
}

func TestDecayBodyStateChains(t *testing.T) {
	cases := []struct {
		start core.BodyState
		chain []core.BodyState
	}{
		{core.BodyWet, []core.BodyState{core.BodyDamp, core.BodyClean, core.BodyClean}},
		{core.BodyBloody, []core.BodyState{core.BodyStained, core.BodyClean}},
		{core.BodyDirty, []core.BodyState{core.BodyDusty, core.BodyClean}},
		{core.BodySweaty, []core.BodyState{core.BodyClean}},
	}
	for _, c := range cases {
		state := c.start
		for i, want := range c.chain {
			state = decayBodyState(state)
			if state != want {
				t.Fatalf("%s step %d: got %q, want %q", c.start, i, state, want)
			}
		}
	}
}

func TestDecayEnergyChains(t *testing.T) {
	if got := decayEnergy(core.EnergyExhausted); got != core.EnergyTired {
		t.Fatalf("got %q, want tired", got)
	}
	if got := decayEnergy(core.EnergyTired); got != core.EnergyNormal {
		t.Fatalf("got %q, want normal", got)
	}
	if got := decayEnergy(core.EnergyNormal); got != core.EnergyNormal {
		t.Fatalf("normal should be a fixed point, got %q", got)
	}
}

func TestDecayInjurySeverityProgression(t *testing.T) {
	inj := core.Injury{Type: "cut", Severity: "severe", Countdown: 1}
	// countdown 1 -> 0 on first decay, severity steps to moderate with fresh countdown
	out := decayInjury(inj)
	if out == nil || out.Severity != "moderate" {
		t.Fatalf("expected moderate, got %+v", out)
	}
	if out.Countdown != defaultInjuryCountdown {
		t.Fatalf("expected countdown reset to %d, got %d", defaultInjuryCountdown, out.Countdown)
	}
}

func TestDecayInjuryCountdownTicksBeforeSeverityChange(t *testing.T) {
	inj := core.Injury{Type: "cut", Severity: "severe", Countdown: 2}
	out := decayInjury(inj)
	if out == nil || out.Severity != "severe" || out.Countdown != 1 {
		t.Fatalf("expected severity unchanged with countdown 1, got %+v", out)
	}
}

func TestDecayInjuryHealedIsDropped(t *testing.T) {
	inj := core.Injury{Type: "cut", Severity: "minor", Countdown: 1}
	out := decayInjury(inj)
	if out != nil {
		t.Fatalf("expected minor injury at countdown 0 to heal and drop, got %+v", out)
	}
}

func TestDecayInjuryPermanentIsFixedPoint(t *testing.T) {
	inj := core.Injury{Type: "scar", Severity: "permanent", Countdown: 1}
	for i := 0; i < 5; i++ {
		out := decayInjury(inj)
		if out == nil || out.Severity != "permanent" {
			t.Fatalf("permanent injury should never decay, got %+v after %d steps", out, i+1)
		}
		inj = *out
	}
}

func TestApplyDecayLeavesPersistentFieldsUntouched(t *testing.T) {
	state := core.CharacterSceneState{
		Clothing: "torn jacket", HairState: "messy", Accessories: []string{"sword"},
		RelationshipContext: map[string]string{"rival": "hostile"},
		LocationInScene:     "alley", Carrying: []string{"lantern"},
		EmotionalState: "furious", BodyState: core.BodyWet, EnergyLevel: core.EnergyExhausted,
	}
	out := applyDecay(state)
	if out.Clothing != state.Clothing || out.HairState != state.HairState {
		t.Fatal("persistent fields should not be touched by decay")
	}
	if out.LocationInScene != state.LocationInScene || out.RelationshipContext["rival"] != "hostile" {
		t.Fatal("persistent fields should not be touched by decay")
	}
	if out.EmotionalState != "angry" || out.BodyState != core.BodyDamp || out.EnergyLevel != core.EnergyTired {
		t.Fatalf("decaying fields should have stepped once, got %+v", out)
	}
}
