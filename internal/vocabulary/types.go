package vocabulary

import (
	"context"
	"strings"
)

// Entry is one kanji of the vocabulary store with its meanings per language.
type Entry struct {
	Kanji    string              `json:"kanji" yaml:"kanji"`
	Grade    int                 `json:"grade" yaml:"grade"`
	Meanings map[string][]string `json:"meanings" yaml:"meanings"`
}

// Store is the durable vocabulary source (implemented by repository.VocabularyRepository).
type Store interface {
	ListFromGrade(ctx context.Context, minGrade int) ([]Entry, error)
	SampleFromGrade(ctx context.Context, minGrade, count int) ([]Entry, error)
}

// LanguagePolicy decides which meaning list is displayed for a requested language.
type LanguagePolicy struct {
	Native      []string
	Fallback    string
	Placeholder string
}

// DefaultLanguagePolicy mirrors the data we ship: French and English meanings only.
func DefaultLanguagePolicy() LanguagePolicy {
	return LanguagePolicy{
		Native:      []string{"en", "fr"},
		Fallback:    "en",
		Placeholder: "?",
	}
}

// Resolve maps a requested language onto one we hold meanings for.
func (p LanguagePolicy) Resolve(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, native := range p.Native {
		if native == lang {
			return lang
		}
	}
	return p.Fallback
}

// Meanings returns the primary meaning and the remaining ones for lang.
// An entry without any usable meaning yields the placeholder and no extras.
func (p LanguagePolicy) Meanings(e Entry, lang string) (string, []string) {
	resolved := p.Resolve(lang)
	meanings := nonEmpty(e.Meanings[resolved])
	if len(meanings) == 0 && resolved != p.Fallback {
		meanings = nonEmpty(e.Meanings[p.Fallback])
	}
	if len(meanings) == 0 {
		return p.Placeholder, nil
	}
	if len(meanings) == 1 {
		return meanings[0], nil
	}
	extras := make([]string, len(meanings)-1)
	copy(extras, meanings[1:])
	return meanings[0], extras
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
