package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/game/card"
	"github.com/kanjiarena/kanji-arena/internal/game/session"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	"github.com/kanjiarena/kanji-arena/internal/leaderboard"
	"github.com/kanjiarena/kanji-arena/internal/metrics"
	"github.com/kanjiarena/kanji-arena/internal/notify"
	"github.com/kanjiarena/kanji-arena/internal/progression"
)

const (
	DefaultWinningThreshold = 20
	DefaultOversampling     = 2
)

// Drawer renders fresh cards. Implemented by *card.Generator.
type Drawer interface {
	Draw(ctx context.Context, grade int, lang string, builder card.Builder, cards int) (card.Batch, error)
}

// Sealer turns a payload into a token and back. Implemented by *session.Codec.
type Sealer interface {
	Seal(p session.Payload) (string, error)
	Open(raw string) (session.Payload, error)
}

// Ranker ranks and stores chronos of one mode. Implemented by *leaderboard.Service.
type Ranker interface {
	Rank(ctx context.Context, durationMs int64, f leaderboard.Filters) (int, error)
	Record(ctx context.Context, rec leaderboard.Record) (leaderboard.Record, error)
}

// Merger folds a finished session into the error ledger. Implemented by
// *progression.Tracker.
type Merger interface {
	Merge(ctx context.Context, userID uuid.UUID, outcomes []progression.Outcome) error
}

// AlertQueue accepts out-of-ranking jobs without blocking. Implemented by
// *notify.Worker.
type AlertQueue interface {
	Enqueue(job notify.Job) bool
}

// Rules are the tunable game constants.
type Rules struct {
	WinningThreshold int
	Oversampling     int
	Grades           gamemode.Grades
}

func (r Rules) withDefaults() Rules {
	if r.WinningThreshold <= 0 {
		r.WinningThreshold = DefaultWinningThreshold
	}
	if r.Oversampling <= 0 {
		r.Oversampling = DefaultOversampling
	}
	if r.Grades == (gamemode.Grades{}) {
		r.Grades = gamemode.DefaultGrades
	}
	return r
}

// batchSize is the number of cards drawn at once.
func (r Rules) batchSize() int {
	return r.WinningThreshold * r.Oversampling
}

// lowWater is the number of unserved cards at or below which a new batch is drawn.
func (r Rules) lowWater() int {
	return r.WinningThreshold / 2
}

// Deps groups the collaborators of an Engine.
type Deps struct {
	Cards       Drawer
	Sessions    Sealer
	Ranking     Ranker
	Progression Merger
	Alerts      AlertQueue
}

// Engine runs stateless quiz sessions for a single mode. All session state
// travels in the sealed token handed back to the player.
type Engine struct {
	mode    gamemode.Mode
	builder card.Builder
	deps    Deps
	rules   Rules
	now     func() time.Time
	logger  zerolog.Logger
}

func NewEngine(mode gamemode.Mode, deps Deps, rules Rules, logger zerolog.Logger) *Engine {
	return &Engine{
		mode:    mode,
		builder: card.BuilderFor(mode),
		deps:    deps,
		rules:   rules.withDefaults(),
		now:     time.Now,
		logger:  logger.With().Str("component", "game_engine").Str("mode", mode.String()).Logger(),
	}
}

// Mode returns the mode this engine plays.
func (e *Engine) Mode() gamemode.Mode {
	return e.mode
}

// Player identifies an authenticated caller.
type Player struct {
	ID          uuid.UUID
	DisplayName string
}

// StartRequest opens a session.
type StartRequest struct {
	Grade int
	Lang  string
	Kind  gamemode.Kind
}

// StartResponse carries the first card and the token to answer it with.
type StartResponse struct {
	Token string    `json:"gameToken"`
	Card  card.Card `json:"card"`
}

// Start validates the grade, draws the first batch and seals a fresh payload.
func (e *Engine) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	if err := e.rules.Grades.Check(req.Grade); err != nil {
		return StartResponse{}, err
	}
	kind := req.Kind
	if kind == "" {
		kind = gamemode.Timed
	}

	batch, err := e.deps.Cards.Draw(ctx, req.Grade, req.Lang, e.builder, e.rules.batchSize())
	if err != nil {
		return StartResponse{}, fmt.Errorf("draw first batch: %w", err)
	}
	metrics.BatchesDrawn.WithLabelValues(e.mode.String(), "start").Inc()

	p := session.Payload{
		StartTime:       e.now().UnixMilli(),
		DifficultyGrade: req.Grade,
		Mode:            e.mode,
		Kind:            kind,
		Lang:            req.Lang,
	}
	p.Append(batch)

	token, err := e.deps.Sessions.Seal(p)
	if err != nil {
		return StartResponse{}, fmt.Errorf("seal session: %w", err)
	}
	metrics.SessionsStarted.WithLabelValues(e.mode.String(), string(kind)).Inc()

	e.logger.Debug().Int("grade", req.Grade).Str("kind", string(kind)).Int("cards", batch.Len()).Msg("session started")
	return StartResponse{Token: token, Card: p.CurrentCard()}, nil
}

// AnswerRequest is one answer to the card currently served.
type AnswerRequest struct {
	Token       string
	ChoiceIndex *int
	Player      *Player
}

// AnswerResult is either the next step of a running session or its end.
type AnswerResult struct {
	Correct      bool       `json:"correct"`
	CorrectIndex int        `json:"correctIndex"`
	SuccessCount int        `json:"successCount"`
	Token        string     `json:"gameToken,omitempty"`
	Card         *card.Card `json:"card,omitempty"`

	Won              bool  `json:"won,omitempty"`
	DurationMs       int64 `json:"durationMs,omitempty"`
	Ranking          int   `json:"ranking,omitempty"`
	TrainingComplete bool  `json:"trainingComplete,omitempty"`
}

// CheckAnswer scores the answer against the committed index, then either
// finishes the session or serves the next card under a new token.
func (e *Engine) CheckAnswer(ctx context.Context, req AnswerRequest) (AnswerResult, error) {
	if req.Token == "" || req.ChoiceIndex == nil {
		return AnswerResult{}, ErrMissingParameters
	}

	p, err := e.deps.Sessions.Open(req.Token)
	if err != nil {
		e.rejectToken(err)
		return AnswerResult{}, err
	}
	if p.Mode != e.mode {
		err := fmt.Errorf("%w: token issued for mode %q", session.ErrEnvelopeInvalid, p.Mode)
		e.rejectToken(err)
		return AnswerResult{}, err
	}

	expected := p.CorrectIndexes[p.CurrentIndex]
	correct := *req.ChoiceIndex == expected
	p.PlayedItems[p.CurrentIndex].Correct = &correct
	if correct {
		p.SuccessCount++
	}
	metrics.AnswersChecked.WithLabelValues(e.mode.String(), outcomeLabel(correct)).Inc()

	result := AnswerResult{
		Correct:      correct,
		CorrectIndex: expected,
		SuccessCount: p.SuccessCount,
	}

	if p.SuccessCount >= e.rules.WinningThreshold {
		return e.finish(ctx, p, req.Player, result)
	}

	p.CurrentIndex++
	if p.Remaining() <= e.rules.lowWater() {
		batch, err := e.deps.Cards.Draw(ctx, p.DifficultyGrade, p.Lang, e.builder, e.rules.batchSize())
		if err != nil {
			return AnswerResult{}, fmt.Errorf("replenish cards: %w", err)
		}
		p.Append(batch)
		metrics.BatchesDrawn.WithLabelValues(e.mode.String(), "replenish").Inc()
	}

	p.Compact()
	token, err := e.deps.Sessions.Seal(p)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("seal session: %w", err)
	}
	next := p.CurrentCard()
	result.Token = token
	result.Card = &next
	return result, nil
}

func (e *Engine) finish(ctx context.Context, p session.Payload, player *Player, result AnswerResult) (AnswerResult, error) {
	elapsed := e.now().Sub(p.Started()).Milliseconds()
	filters := leaderboard.Filters{Grade: p.DifficultyGrade}
	result.Won = true
	metrics.SessionsWon.WithLabelValues(e.mode.String(), string(p.Kind)).Inc()

	logger := e.logger.With().Int("grade", p.DifficultyGrade).Int64("duration_ms", elapsed).Logger()

	if p.Kind.RequiresRecord() {
		rank, err := e.deps.Ranking.Rank(ctx, elapsed, filters)
		if err != nil {
			return AnswerResult{}, fmt.Errorf("%w: rank chrono: %v", ErrPersistence, err)
		}
		result.DurationMs = elapsed
		result.Ranking = rank

		if player != nil {
			rec, err := e.deps.Ranking.Record(ctx, leaderboard.Record{
				UserID:      &player.ID,
				DisplayName: player.DisplayName,
				DurationMs:  elapsed,
				Grade:       p.DifficultyGrade,
			})
			if err != nil {
				return AnswerResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			if e.deps.Alerts != nil {
				e.deps.Alerts.Enqueue(notify.Job{
					Mode:       e.mode,
					RecordID:   rec.ID,
					UserID:     player.ID,
					DurationMs: elapsed,
					Filters:    filters,
				})
			}
		}
	} else {
		result.TrainingComplete = true
	}

	if player != nil {
		if err := e.deps.Progression.Merge(ctx, player.ID, answeredOutcomes(p)); err != nil {
			logger.Error().Err(err).Str("user_id", player.ID.String()).Msg("progression merge failed after win")
			return AnswerResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	logger.Info().Bool("identified", player != nil).Int("ranking", result.Ranking).Msg("session won")
	return result, nil
}

// answeredOutcomes lists the answered cards up to the current one.
func answeredOutcomes(p session.Payload) []progression.Outcome {
	outcomes := make([]progression.Outcome, 0, p.CurrentIndex+1)
	for _, played := range p.PlayedItems[:p.CurrentIndex+1] {
		if !played.Answered() {
			continue
		}
		outcomes = append(outcomes, progression.Outcome{Item: played.Item, Correct: *played.Correct})
	}
	return outcomes
}

func (e *Engine) rejectToken(err error) {
	reason := "invalid"
	switch {
	case errors.Is(err, session.ErrEnvelopeExpired):
		reason = "expired"
	case errors.Is(err, session.ErrPayloadCorrupt):
		reason = "corrupt"
	}
	metrics.TokensRejected.WithLabelValues(reason).Inc()
	e.logger.Warn().Err(err).Str("reason", reason).Msg("game token rejected")
}

func outcomeLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}
