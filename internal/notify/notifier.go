package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/account"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	"github.com/kanjiarena/kanji-arena/internal/leaderboard"
)

const DefaultRankThreshold = 100

// Job describes a freshly stored chrono that may have pushed someone down.
type Job struct {
	Mode       gamemode.Mode
	RecordID   uuid.UUID
	UserID     uuid.UUID
	DurationMs int64
	Filters    leaderboard.Filters
}

// Result is what an evaluation decided; it labels the notification metric.
type Result string

const (
	ResultSent            Result = "sent"
	ResultRankTooLow      Result = "rank_too_low"
	ResultNoneDisplaced   Result = "none_displaced"
	ResultAnonymous       Result = "anonymous"
	ResultSameOwner       Result = "same_owner"
	ResultNotContactable  Result = "not_contactable"
	ResultNotPersonalBest Result = "not_personal_best"
	ResultUnknownMode     Result = "unknown_mode"
	ResultFailed          Result = "failed"
	ResultDropped         Result = "dropped"
)

// Ranking is the part of a leaderboard service the notifier consults.
type Ranking interface {
	Rank(ctx context.Context, durationMs int64, f leaderboard.Filters) (int, error)
	Displaced(ctx context.Context, rank int, f leaderboard.Filters, excludeID uuid.UUID) (*leaderboard.Record, error)
	UserBestRecord(ctx context.Context, userID uuid.UUID, f leaderboard.Filters) (*leaderboard.Record, error)
}

// Options configures a Notifier.
type Options struct {
	RankThreshold int
	SiteName      string
}

// Notifier decides whether a new chrono ejected another player's personal
// best from the top of a board, and mails that player when it did.
type Notifier struct {
	boards    map[gamemode.Mode]Ranking
	users     account.Store
	mailer    Mailer
	threshold int
	siteName  string
	logger    zerolog.Logger
}

// NewNotifier binds one Ranking per mode. The mapping is not modified later.
func NewNotifier(boards map[gamemode.Mode]Ranking, users account.Store, mailer Mailer, logger zerolog.Logger, opts Options) *Notifier {
	threshold := opts.RankThreshold
	if threshold <= 0 {
		threshold = DefaultRankThreshold
	}
	site := opts.SiteName
	if site == "" {
		site = "Kanji Arena"
	}
	indexed := make(map[gamemode.Mode]Ranking, len(boards))
	for mode, board := range boards {
		indexed[mode] = board
	}
	return &Notifier{
		boards:    indexed,
		users:     users,
		mailer:    mailer,
		threshold: threshold,
		siteName:  site,
		logger:    logger.With().Str("component", "out_of_ranking_notifier").Logger(),
	}
}

// Evaluate walks the notification rules for one job and sends at most one
// message. A non-nil error always comes with ResultFailed.
func (n *Notifier) Evaluate(ctx context.Context, job Job) (Result, error) {
	board, ok := n.boards[job.Mode]
	if !ok {
		return ResultUnknownMode, nil
	}

	rank, err := board.Rank(ctx, job.DurationMs, job.Filters)
	if err != nil {
		return ResultFailed, err
	}
	if rank > n.threshold {
		return ResultRankTooLow, nil
	}

	displaced, err := board.Displaced(ctx, rank, job.Filters, job.RecordID)
	if err != nil {
		return ResultFailed, err
	}
	// A tie keeps its rank, so only a strictly slower record is pushed down.
	if displaced == nil || displaced.DurationMs <= job.DurationMs {
		return ResultNoneDisplaced, nil
	}
	if displaced.Anonymous() {
		return ResultAnonymous, nil
	}
	if displaced.OwnedBy(job.UserID) {
		return ResultSameOwner, nil
	}

	owner, err := n.users.GetByID(ctx, *displaced.UserID)
	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			return ResultNotContactable, nil
		}
		return ResultFailed, fmt.Errorf("load displaced owner: %w", err)
	}
	if !owner.Contactable() {
		return ResultNotContactable, nil
	}

	best, err := board.UserBestRecord(ctx, owner.ID, job.Filters)
	if err != nil {
		return ResultFailed, err
	}
	if best == nil || best.DurationMs < displaced.DurationMs {
		return ResultNotPersonalBest, nil
	}

	msg, err := render(owner, message{
		SiteName:    n.siteName,
		DisplayName: owner.DisplayName,
		Mode:        job.Mode.String(),
		Grade:       job.Filters.Grade,
		DurationMs:  displaced.DurationMs,
		Rank:        rank + 1,
		Threshold:   n.threshold,
	})
	if err != nil {
		return ResultFailed, err
	}
	msg.To = owner.Email

	if err := n.mailer.Send(ctx, msg); err != nil {
		return ResultFailed, fmt.Errorf("send notification: %w", err)
	}
	n.logger.Info().
		Str("user_id", owner.ID.String()).
		Str("mode", job.Mode.String()).
		Int("grade", job.Filters.Grade).
		Int("new_rank", rank+1).
		Msg("out-of-ranking notification sent")
	return ResultSent, nil
}

type message struct {
	SiteName    string
	DisplayName string
	Mode        string
	Grade       int
	DurationMs  int64
	Rank        int
	Threshold   int
}

func (m message) Seconds() string {
	return fmt.Sprintf("%.2f", float64(m.DurationMs)/1000)
}

type localized struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]localized{
	"en": {
		subject: template.Must(template.New("subject_en").Parse(`{{.SiteName}}: your {{.Mode}} record has been beaten`)),
		body: template.Must(template.New("body_en").Parse(`Hello {{.DisplayName}},

Another player just beat your best time of {{.Seconds}}s on the {{.Mode}} board, grade {{.Grade}}.
You are now ranked #{{.Rank}}{{if gt .Rank .Threshold}} and out of the top {{.Threshold}}{{end}}.

Come back and take your place again!

You can turn these alerts off from your account settings.
`)),
	},
	"fr": {
		subject: template.Must(template.New("subject_fr").Parse(`{{.SiteName}} : votre record {{.Mode}} a été battu`)),
		body: template.Must(template.New("body_fr").Parse(`Bonjour {{.DisplayName}},

Un autre joueur vient de battre votre meilleur temps de {{.Seconds}} s au classement {{.Mode}}, niveau {{.Grade}}.
Vous êtes maintenant classé n°{{.Rank}}{{if gt .Rank .Threshold}} et sorti du top {{.Threshold}}{{end}}.

Revenez reprendre votre place !

Vous pouvez désactiver ces alertes depuis les paramètres de votre compte.
`)),
	},
}

func render(owner account.User, data message) (Message, error) {
	lang := strings.ToLower(owner.Locale)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	tmpl, ok := templates[lang]
	if !ok {
		tmpl = templates["en"]
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	return Message{Subject: subject.String(), Text: body.String()}, nil
}
