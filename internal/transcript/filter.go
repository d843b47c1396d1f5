package transcript

import (
	"strings"
	"unicode"
)

const (
	minLength        = 2
	maxLength        = 200
	shortPhraseLimit = 10
)

// Script bounds the filter per locale: which rune ranges count as the target
// script and which short decodes are known noise artifacts.
type Script struct {
	// Ranges are the unicode tables that must contribute at least one rune.
	Ranges []*unicode.RangeTable
	// FalsePositives are phrases the speech model habitually hallucinates
	// out of background noise; texts of at most shortPhraseLimit runes
	// containing one of them are rejected.
	FalsePositives []string
	// RejectASCIIOnly rejects texts made solely of ASCII letters and basic
	// punctuation, a wrong-language decode artifact for non-Latin locales.
	RejectASCIIOnly bool
}

// Whisper-style models decode Japanese room noise into stock backchannel
// phrases; observed in production, kept deliberately broad.
var japaneseFalsePositives = []string{
	"ありがとうございました",
	"お疲れ様でした",
	"そうですね",
	"はい",
	"いえ",
	"うん",
	"そう",
	"...",
	"。。。",
	"えーと",
	"あのー",
	"まあ",
	"ちょっと",
	"Thank you",
	"thank you",
}

var englishFalsePositives = []string{
	"Thank you",
	"thank you",
	"you know",
	"um",
	"uh",
	"...",
}

var scriptsByLocale = map[string]Script{
	"ja": {
		Ranges:          []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana, unicode.Han},
		FalsePositives:  japaneseFalsePositives,
		RejectASCIIOnly: true,
	},
	"en": {
		Ranges:         []*unicode.RangeTable{unicode.Latin},
		FalsePositives: englishFalsePositives,
	},
}

// ScriptForLocale resolves a locale tag ("ja", "ja-JP") to its script rules.
// Unknown locales fall back to requiring any letter, with no phrase list.
func ScriptForLocale(locale string) Script {
	tag := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if script, ok := scriptsByLocale[tag]; ok {
		return script
	}
	return Script{Ranges: []*unicode.RangeTable{unicode.L}}
}

// IsPlausible reports whether decoded text is worth keeping. Every rule must
// pass; the filter prefers losing a real short utterance over letting a
// noise transcription into the report.
func IsPlausible(text, locale string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	if len(runes) < minLength || len(runes) > maxLength {
		return false
	}

	script := ScriptForLocale(locale)
	if len(runes) <= shortPhraseLimit && containsFalsePositive(trimmed, script.FalsePositives) {
		return false
	}
	if script.RejectASCIIOnly && isASCIILettersOnly(runes) {
		return false
	}
	if isSymbolsOnly(runes) {
		return false
	}
	return containsScriptRune(runes, script.Ranges)
}

func containsFalsePositive(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func isASCIILettersOnly(runes []rune) bool {
	for _, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == ' ', r == '.', r == ',', r == '!', r == '?':
		default:
			return false
		}
	}
	return true
}

func isSymbolsOnly(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

func containsScriptRune(runes []rune, ranges []*unicode.RangeTable) bool {
	for _, r := range runes {
		if unicode.IsOneOf(ranges, r) {
			return true
		}
	}
	return false
}
