package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/storyforge/orchestrator/internal/core"
)

// patternSet holds candidate categories in a fixed priority order: the
// first entry whose patterns match wins, so results stay deterministic
// regardless of how many categories a prompt matches.
type patternSet[T comparable] []patternEntry[T]

type patternEntry[T comparable] struct {
	key      T
	patterns []*regexp.Regexp
}

func compile(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

func entry[T comparable](key T, exprs []string) patternEntry[T] {
	return patternEntry[T]{key: key, patterns: compile(exprs)}
}

var contentTypePatterns = patternSet[core.ContentType]{
	entry(core.ContentImage, []string{
		`(?i)\b(image|picture|photo|portrait|artwork|design|concept art)\b`,
		`(?i)\b(character design|reference sheet|profile)\b`,
		`(?i)\b(still|static|frame)\b`,
	}),
	entry(core.ContentVideo, []string{
		`(?i)\b(video|animation|animated|sequence|scene|episode)\b`,
		`(?i)\b(movie|clip|trailer|action)\b`,
		`(?i)\b(\d+\s*(second|minute|sec|min))\b`,
		`(?i)\b(movement|walking|fighting|dancing)\b`,
	}),
	entry(core.ContentAudio, []string{
		`(?i)\b(voice|audio|sound|music|dialogue)\b`,
		`(?i)\b(speak|say|talking|singing)\b`,
	}),
}

var scopePatterns = patternSet[core.GenerationScope]{
	entry(core.ScopeCharacterProfile, []string{
		`(?i)\b(character|profile|design|reference|bio)\b`,
		`(?i)\bnamed?\s+(\w+)\b`,
		`(?i)\b(appearance|looks like|description)\b`,
	}),
	entry(core.ScopeCharacterScene, []string{
		`(?i)\b(\w+)\s+(in|at|during|while)\b`,
		`(?i)\b(character|person)\s+.*(scene|situation|location)\b`,
	}),
	entry(core.ScopeEnvironment, []string{
		`(?i)\b(background|environment|location|setting|place)\b`,
		`(?i)\b(cityscape|landscape|room|building|forest)\b`,
	}),
	entry(core.ScopeActionSequence, []string{
		`(?i)\b(action|fight|battle|chase|combat)\b`,
		`(?i)\b(fighting|running|jumping|attacking)\b`,
	}),
	entry(core.ScopeDialogueScene, []string{
		`(?i)\b(dialogue|conversation|talking|speaking)\b`,
		`(?i)\b(says?|speaks?|tells?)\b`,
	}),
	entry(core.ScopeFullEpisode, []string{
		`(?i)\b(episode|full|complete|story)\b`,
		`(?i)\b(\d+\s*minute|long|series)\b`,
	}),
}

var stylePatterns = patternSet[string]{
	entry("photorealistic_anime", []string{`(?i)\b(photorealistic|realistic|detailed|high.?quality)\b`, `(?i)\b(3d|rendered|lifelike)\b`}),
	entry("traditional_anime", []string{`(?i)\b(anime|manga|japanese|traditional)\b`, `(?i)\b(2d|classic|cel.?shaded)\b`}),
	entry("cartoon", []string{`(?i)\b(cartoon|western|disney|pixar)\b`}),
	entry("artistic", []string{`(?i)\b(artistic|experimental|abstract|creative)\b`}),
	entry("chibi", []string{`(?i)\b(chibi|cute|kawaii|small)\b`}),
	entry("cinematic", []string{`(?i)\b(cinematic|movie|film|dramatic)\b`}),
}

var urgencyPatterns = patternSet[core.UrgencyLevel]{
	entry(core.UrgencyImmediate, []string{`(?i)\b(now|immediately|urgent|asap|right away)\b`}),
	entry(core.UrgencyUrgent, []string{`(?i)\b(soon|quickly|within.*hour)\b`}),
	entry(core.UrgencyScheduled, []string{`(?i)\b(schedule|later|tomorrow|next|at \d+)\b`}),
	entry(core.UrgencyBatchProcessing, []string{`(?i)\b(batch|multiple|series|collection)\b`}),
}

var characterNamePatterns = compile([]string{
	`(?i)\b(?:character|person)\s+named\s+(\w+)\b`,
	`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\s+(?:with|having|in)\b`,
})

var durationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*(?:second|sec)s?`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:minute|min)s?`),
	regexp.MustCompile(`(\d+):(\d+)`),
}

// firstMatch returns the first key whose pattern list matches text, the
// deterministic-pattern-pass candidate for a field.
func firstMatch[T comparable](text string, patterns patternSet[T]) (T, bool) {
	var zero T
	for _, e := range patterns {
		for _, re := range e.patterns {
			if re.MatchString(text) {
				return e.key, true
			}
		}
	}
	return zero, false
}

// extractCharacterNames pulls candidate character names via the same
// loose heuristics as the pattern matcher's name extraction.
func extractCharacterNames(text string) []string {
	seen := map[string]bool{}
	var names []string
	for _, re := range characterNamePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			name := strings.TrimSpace(m[1])
			if len(name) > 2 && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// extractDuration pulls a duration in seconds from free text, or nil.
func extractDuration(text string) *int {
	lower := strings.ToLower(text)
	for i, re := range durationPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		switch i {
		case 0: // seconds
			if v, err := strconv.Atoi(m[1]); err == nil {
				return &v
			}
		case 1: // minutes
			if v, err := strconv.Atoi(m[1]); err == nil {
				seconds := v * 60
				return &seconds
			}
		case 2: // MM:SS
			mins, err1 := strconv.Atoi(m[1])
			secs, err2 := strconv.Atoi(m[2])
			if err1 == nil && err2 == nil {
				total := mins*60 + secs
				return &total
			}
		}
	}
	return nil
}
