// Package assistant is the conversational core: it classifies each chat
// message against an ordered chain of intents and produces a single reply,
// backed by the personal-data stores and the external services.
package assistant

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jholhewres/buddy/pkg/buddy/metrics"
	"github.com/jholhewres/buddy/pkg/buddy/services"
	"github.com/jholhewres/buddy/pkg/buddy/store"
)

// Intent names the branch of the chain that produced a reply.
type Intent string

const (
	IntentGreeting      Intent = "greeting"
	IntentTraffic       Intent = "traffic"
	IntentWeather       Intent = "weather"
	IntentDateTime      Intent = "datetime"
	IntentRemindersList Intent = "reminders_list"
	IntentReminderSet   Intent = "reminder_set"
	IntentTaskAdd       Intent = "task_add"
	IntentTasksList     Intent = "tasks_list"
	IntentNoteAdd       Intent = "note_add"
	IntentNotesList     Intent = "notes_list"
	IntentEventAdd      Intent = "event_add"
	IntentEventsList    Intent = "events_list"
	IntentJoke          Intent = "joke"
	IntentMotivation    Intent = "motivation"
	IntentCourses       Intent = "courses"
	IntentAI            Intent = "ai"
	IntentKnowledge     Intent = "knowledge"
	IntentFallback      Intent = "fallback"
)

// Reply is the single answer to one chat message.
type Reply struct {
	Text   string `json:"reply"`
	Intent Intent `json:"intent"`
}

// Router computes driving routes between two places.
type Router interface {
	Directions(ctx context.Context, origin, destination string) (services.Route, error)
}

// WeatherService reports current conditions.
type WeatherService interface {
	Current(ctx context.Context, city string) (services.Conditions, error)
	DefaultCity() string
}

// Answerer answers free-form questions and translation requests.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Encyclopedia returns a short summary for a topic.
type Encyclopedia interface {
	Summary(ctx context.Context, query string) (string, error)
}

// WebSearch returns result snippets for a query.
type WebSearch interface {
	Snippets(ctx context.Context, query string, limit int) (string, error)
}

// ReminderScheduler turns a stored reminder into a delivered notification.
type ReminderScheduler interface {
	Schedule(user, task, timeText string) (due time.Time, ok bool, err error)
}

// Deps are the collaborators of an Assistant. Only Stores is required; a nil
// service disables the branches that need it.
type Deps struct {
	Stores *store.Set

	Router       Router
	Weather      WeatherService
	Answerer     Answerer
	Encyclopedia Encyclopedia
	Search       WebSearch

	// SearchResults is how many web snippets the knowledge fallback joins.
	SearchResults int

	Reminders  ReminderScheduler
	Translator Translator

	// Language is the translation target of every reply.
	Language string

	// Location is the zone of the date/time reply.
	Location *time.Location

	// Pick returns a random index in [0, n). Defaults to math/rand/v2.
	Pick func(n int) int

	// Now defaults to time.Now.
	Now func() time.Time

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Assistant classifies chat messages and replies to them.
type Assistant struct {
	stores *store.Set

	// External services. Any of them may be nil.
	router       Router
	weather      WeatherService
	answerer     Answerer
	encyclopedia Encyclopedia
	search       WebSearch
	searchLimit  int

	reminders  ReminderScheduler
	translator Translator
	language   string
	location   *time.Location

	pick    func(n int) int
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger

	// chain is walked in order; the first handler that replies wins.
	chain []intentHandler
}

// New creates an Assistant from its dependencies.
func New(d Deps) *Assistant {
	a := &Assistant{
		stores:       d.Stores,
		router:       d.Router,
		weather:      d.Weather,
		answerer:     d.Answerer,
		encyclopedia: d.Encyclopedia,
		search:       d.Search,
		searchLimit:  d.SearchResults,
		reminders:    d.Reminders,
		translator:   d.Translator,
		language:     d.Language,
		location:     d.Location,
		pick:         d.Pick,
		now:          d.Now,
		metrics:      d.Metrics,
		logger:       d.Logger,
	}
	if a.searchLimit <= 0 {
		a.searchLimit = 2
	}
	if a.translator == nil {
		a.translator = IdentityTranslator{}
	}
	if a.language == "" {
		a.language = "en"
	}
	if a.location == nil {
		a.location = time.Local
	}
	if a.pick == nil {
		a.pick = rand.IntN
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "assistant")
	a.chain = a.buildChain()
	return a
}

// Reply answers message on behalf of user. It always produces exactly one
// reply.
func (a *Assistant) Reply(ctx context.Context, user, message string) Reply {
	raw := strings.TrimSpace(message)
	t := &turn{user: user, raw: raw, lower: strings.ToLower(raw)}

	for _, h := range a.chain {
		text, ok := h.fn(ctx, t)
		if !ok {
			continue
		}
		return a.finish(h.intent, text)
	}
	return a.finish(IntentFallback, a.choose(defaultResponses))
}

// Respond is Reply flattened to plain strings, for the HTTP and CLI layers.
func (a *Assistant) Respond(ctx context.Context, user, message string) (reply, intent string) {
	r := a.Reply(ctx, user, message)
	return r.Text, string(r.Intent)
}

func (a *Assistant) finish(intent Intent, text string) Reply {
	a.metrics.ObserveChat(string(intent))
	a.logger.Debug("reply", "intent", intent)
	return Reply{
		Text:   a.translator.Translate(text, a.language),
		Intent: intent,
	}
}

func (a *Assistant) choose(options []string) string {
	return options[a.pick(len(options))]
}
