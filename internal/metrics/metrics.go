package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kanji_arena"

var (
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_started_total",
		Help:      "Game sessions started, by mode and kind.",
	}, []string{"mode", "kind"})

	AnswersChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_checked_total",
		Help:      "Answers evaluated, by mode and outcome.",
	}, []string{"mode", "outcome"})

	SessionsWon = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_won_total",
		Help:      "Sessions that reached the winning threshold.",
	}, []string{"mode", "kind"})

	TokensRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "game_tokens_rejected_total",
		Help:      "Game tokens that failed to open, by failure kind.",
	}, []string{"reason"})

	BatchesDrawn = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "card_batches_drawn_total",
		Help:      "Card batches drawn, initial or replenishment.",
	}, []string{"mode", "trigger"})

	VocabularyDraws = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vocabulary_draws_total",
		Help:      "Vocabulary samples by pool cache result (hit, miss, store).",
	}, []string{"result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "out_of_ranking_notifications_total",
		Help:      "Out-of-ranking notification jobs, by result.",
	}, []string{"result"})

	ProgressionMerges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "progression_merges_total",
		Help:      "Finished sessions merged into the progression ledger.",
	})
)
