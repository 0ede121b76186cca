// Package safety provides fast keyword-based content checks for
// child-appropriate storytelling. These checks run before and alongside the
// model-backed validator; they are deliberately simple and deterministic.
package safety

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// Terms that are never appropriate for the 5-10 age range.
//
//nolint:gochecknoglobals // static term lists
var bannedTerms = []string{
	// Violence and gore.
	"murder", "killing", "blood", "gore", "torture", "massacre",
	"mutilation", "slaughter",

	// Adult content.
	"sex", "sexual", "erotic", "nudity", "rape", "assault",

	// Substance abuse.
	"drugs", "cocaine", "heroin", "cigarettes", "smoking", "drunk",
	"overdose", "addiction",

	// Disturbing content.
	"suicide", "self-harm", "abuse", "kidnapping",

	// Profanity.
	"damn", "hell", "shit", "fuck", "bastard",

	// Weapons.
	"gun", "rifle", "pistol", "grenade", "bomb", "stabbing", "shooting",

	// Horror.
	"demon", "possessed", "haunted", "gruesome", "macabre",
}

// Terms that may be acceptable in context but are flagged in strict mode.
//
//nolint:gochecknoglobals // static term lists
var warningTerms = []string{
	"death", "dying", "dead", "funeral", "grave",
	"monster", "scary", "frightened", "afraid",
	"fight", "battle", "war",
	"crying", "lonely", "abandoned",
	"lost", "orphan", "homeless",
	"fire", "burn", "disaster",
}

var (
	patternOnce     sync.Once
	bannedPatterns  []*regexp.Regexp
	warningPatterns []*regexp.Regexp
)

func compilePatterns() {
	bannedPatterns = make([]*regexp.Regexp, len(bannedTerms))
	for i, term := range bannedTerms {
		bannedPatterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
	}
	warningPatterns = make([]*regexp.Regexp, len(warningTerms))
	for i, term := range warningTerms {
		warningPatterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
	}
}

// Scan checks content for disallowed terms. In strict mode, warning-tier terms
// are flagged too, not only outright-banned ones. Returns true with no issues
// when the content is clean.
func Scan(content string, strict bool) (bool, []string) {
	if content == "" {
		return true, nil
	}

	patternOnce.Do(compilePatterns)
	lower := strings.ToLower(content)

	var issues []string
	for i, pattern := range bannedPatterns {
		if pattern.MatchString(lower) {
			issues = append(issues, fmt.Sprintf("contains banned term: %q", bannedTerms[i]))
		}
	}

	if strict {
		for i, pattern := range warningPatterns {
			if pattern.MatchString(lower) {
				issues = append(issues, fmt.Sprintf("contains sensitive term: %q", warningTerms[i]))
			}
		}
	}

	return len(issues) == 0, issues
}

// MaxInputLength bounds sanitized user input.
const MaxInputLength = 10000

// Sanitize trims, length-bounds, and strips control characters from user text.
// Newlines and tabs are preserved.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	if len(text) > MaxInputLength {
		// Back up to a rune boundary so the cut never yields U+FFFD.
		cut := MaxInputLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// SafeAlternatives suggests gentle replacement themes for a rejected request.
func SafeAlternatives(theme string) []string {
	alternatives := map[string][]string{
		"violence": {"courage", "bravery", "problem-solving"},
		"scary":    {"adventure", "mystery", "discovery"},
		"death":    {"saying goodbye", "remembering loved ones"},
		"fight":    {"cooperation", "working together"},
		"monster":  {"friendly creatures", "magical beings", "animal friends"},
	}

	lower := strings.ToLower(theme)
	for key, values := range alternatives {
		if strings.Contains(lower, key) {
			return values
		}
	}

	return []string{
		"friendship and kindness",
		"helping others",
		"animal adventures",
		"magical discoveries",
	}
}

// RejectionMessage formats a gentle refusal for an inappropriate request.
func RejectionMessage(theme string) string {
	alts := SafeAlternatives(theme)
	if len(alts) > 3 {
		alts = alts[:3]
	}
	return fmt.Sprintf(
		"I'm sorry, I can't help with that story. I can make a safe, child-friendly story about %s instead. Would you like that?",
		strings.Join(alts, ", "),
	)
}
