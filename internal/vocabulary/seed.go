package vocabulary

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML document imported by kanjictl.
type Seed struct {
	Kanjis []Entry `yaml:"kanjis"`
}

// ParseSeed decodes and checks a seed document. Later duplicates of a kanji
// replace earlier ones.
func ParseSeed(r io.Reader) ([]Entry, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	index := make(map[string]int, len(seed.Kanjis))
	out := make([]Entry, 0, len(seed.Kanjis))
	for i, e := range seed.Kanjis {
		e.Kanji = strings.TrimSpace(e.Kanji)
		if e.Kanji == "" {
			return nil, fmt.Errorf("entry %d: kanji is required", i)
		}
		if e.Grade < 1 {
			return nil, fmt.Errorf("entry %d (%s): grade must be at least 1", i, e.Kanji)
		}
		for lang, meanings := range e.Meanings {
			e.Meanings[lang] = nonEmpty(meanings)
		}
		if at, dup := index[e.Kanji]; dup {
			out[at] = e
			continue
		}
		index[e.Kanji] = len(out)
		out = append(out, e)
	}
	return out, nil
}
