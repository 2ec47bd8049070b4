package session

import (
	"fmt"
	"time"

	"github.com/kanjiarena/kanji-arena/internal/game/card"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
)

// PlayedItem is one drawn card and, once answered, whether it was answered right.
type PlayedItem struct {
	Item    string    `json:"item"`
	Correct *bool     `json:"correct,omitempty"`
	Card    card.Card `json:"card,omitzero"`
}

// Answered reports whether the card has been answered.
func (p PlayedItem) Answered() bool {
	return p.Correct != nil
}

// Payload is the whole state of an in-progress game. It only ever exists
// inside a sealed token between requests.
type Payload struct {
	SuccessCount    int           `json:"successCount"`
	StartTime       int64         `json:"startTime"`
	DifficultyGrade int           `json:"difficultyGrade"`
	Mode            gamemode.Mode `json:"mode"`
	Kind            gamemode.Kind `json:"kind"`
	Lang            string        `json:"lang"`
	CorrectIndexes  []int         `json:"correctIndexes"`
	PlayedItems     []PlayedItem  `json:"playedItems"`
	CurrentIndex    int           `json:"currentIndex"`
}

// Started returns the elapsed-time anchor.
func (p Payload) Started() time.Time {
	return time.UnixMilli(p.StartTime)
}

// Remaining is the number of drawn cards not yet served.
func (p Payload) Remaining() int {
	return len(p.CorrectIndexes) - p.CurrentIndex
}

// CurrentCard is the card being answered.
func (p Payload) CurrentCard() card.Card {
	return p.PlayedItems[p.CurrentIndex].Card
}

// Validate checks the structural invariants a sealed payload must satisfy.
func (p Payload) Validate() error {
	if p.SuccessCount < 0 {
		return fmt.Errorf("negative success count %d", p.SuccessCount)
	}
	if len(p.PlayedItems) != len(p.CorrectIndexes) {
		return fmt.Errorf("played items (%d) and correct indexes (%d) diverge", len(p.PlayedItems), len(p.CorrectIndexes))
	}
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(p.CorrectIndexes) {
		return fmt.Errorf("current index %d out of range [0,%d)", p.CurrentIndex, len(p.CorrectIndexes))
	}
	for i, idx := range p.CorrectIndexes {
		if idx < 0 {
			return fmt.Errorf("negative correct index %d of card %d", idx, i)
		}
		if i < p.CurrentIndex && p.PlayedItems[i].Answered() {
			continue
		}
		if idx >= len(p.PlayedItems[i].Card.Choices) {
			return fmt.Errorf("correct index %d of card %d outside its %d choices", idx, i, len(p.PlayedItems[i].Card.Choices))
		}
	}
	if _, err := gamemode.Parse(string(p.Mode)); err != nil {
		return err
	}
	return nil
}

// Append extends the drawn cards in place.
func (p *Payload) Append(batch card.Batch) {
	for i, c := range batch.Cards {
		p.CorrectIndexes = append(p.CorrectIndexes, batch.CorrectIndexes[i])
		p.PlayedItems = append(p.PlayedItems, PlayedItem{Item: batch.Answers[i], Card: c})
	}
}

// Compact drops the rendered cards already answered. Only their item and
// outcome are read again.
func (p *Payload) Compact() {
	for i := range p.PlayedItems[:p.CurrentIndex] {
		if p.PlayedItems[i].Answered() {
			p.PlayedItems[i].Card = card.Card{}
		}
	}
}
