package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jholhewres/buddy/pkg/buddy/services"
	"github.com/jholhewres/buddy/pkg/buddy/store"
)

// turn is one message being classified.
type turn struct {
	user  string
	raw   string // trimmed, original case
	lower string
}

// intentHandler replies to a turn, or reports ok=false to pass it on.
type intentHandler struct {
	intent Intent
	fn     func(ctx context.Context, t *turn) (string, bool)
}

var (
	greetingPatterns = map[string]*regexp.Regexp{
		"hi":     regexp.MustCompile(`\bhi\b`),
		"hello":  regexp.MustCompile(`\bhello\b`),
		"thanks": regexp.MustCompile(`\bthanks\b`),
	}

	reTrafficFromTo = regexp.MustCompile(`(traffic|directions|route)\s+from\s+(.+?)\s+to\s+(.+)$`)
	reTrafficToFrom = regexp.MustCompile(`traffic.*\bto\s+(.+?)\s+from\s+(.+)$`)

	reWeather     = regexp.MustCompile(`\bweather\b`)
	reWeatherCity = regexp.MustCompile(`\bweather\s+(?:in|for|at)\s+([\p{L} .'-]+?)\s*[?.!]*$`)

	reDateTime = regexp.MustCompile(`\btimes?\b|\bdates?\b`)

	reSetReminder = regexp.MustCompile(`set reminder (.+) at (.+)`)
	reAddTask     = regexp.MustCompile(`add task (.+)`)
	reAddNote     = regexp.MustCompile(`add note (.+)`)
	reAddEvent    = regexp.MustCompile(`add event (.+) on (.+)`)

	reJoke       = regexp.MustCompile(`\bjokes?\b`)
	reMotivation = regexp.MustCompile(`\bmotivate[sd]?\b`)
	reAskAI      = regexp.MustCompile(`\bsolv(e|es|ed|ing)\b|\bdoubts?\b|\btranslat(e|es|ed|ion)\b`)
)

const dateTimeLayout = "2006-01-02 15:04:05"

func (a *Assistant) buildChain() []intentHandler {
	return []intentHandler{
		{IntentGreeting, a.greet},
		{IntentTraffic, a.traffic},
		{IntentWeather, a.currentWeather},
		{IntentDateTime, a.dateTime},
		{IntentRemindersList, a.listReminders},
		{IntentReminderSet, a.setReminder},
		{IntentTaskAdd, a.addTask},
		{IntentTasksList, a.listTasks},
		{IntentNoteAdd, a.addNote},
		{IntentNotesList, a.listNotes},
		{IntentEventAdd, a.addEvent},
		{IntentEventsList, a.listEvents},
		{IntentJoke, a.joke},
		{IntentMotivation, a.motivate},
		{IntentCourses, a.courses},
		{IntentAI, a.askAI},
		{IntentKnowledge, a.lookup},
	}
}

// ---------- Small talk ----------

func (a *Assistant) greet(_ context.Context, t *turn) (string, bool) {
	for _, g := range greetings {
		if containsKeyword(t.lower, g.trigger) {
			return a.choose(g.replies), true
		}
	}
	return "", false
}

// containsKeyword matches single words on word boundaries and phrases as
// substrings.
func containsKeyword(text, keyword string) bool {
	if re, ok := greetingPatterns[keyword]; ok {
		return re.MatchString(text)
	}
	return strings.Contains(text, keyword)
}

func (a *Assistant) joke(_ context.Context, t *turn) (string, bool) {
	if !reJoke.MatchString(t.lower) {
		return "", false
	}
	return a.choose(jokes), true
}

func (a *Assistant) motivate(_ context.Context, t *turn) (string, bool) {
	if !reMotivation.MatchString(t.lower) {
		return "", false
	}
	return a.choose(quotes), true
}

func (a *Assistant) courses(_ context.Context, t *turn) (string, bool) {
	for _, p := range courseTriggers {
		if strings.Contains(t.lower, p) {
			return coursesReply, true
		}
	}
	return "", false
}

func (a *Assistant) dateTime(_ context.Context, t *turn) (string, bool) {
	if !reDateTime.MatchString(t.lower) {
		return "", false
	}
	now := a.now().In(a.location)
	return "🕒 Current date & time: " + now.Format(dateTimeLayout), true
}

// ---------- External services ----------

func (a *Assistant) traffic(ctx context.Context, t *turn) (string, bool) {
	var origin, dest string
	if m := reTrafficFromTo.FindStringSubmatch(t.lower); m != nil {
		origin, dest = strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
	} else if m := reTrafficToFrom.FindStringSubmatch(t.lower); m != nil {
		dest, origin = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	} else {
		return "", false
	}

	if a.router == nil {
		return "Couldn't fetch traffic right now. routing is not configured", true
	}
	route, err := a.router.Directions(ctx, origin, dest)
	if err != nil {
		a.logger.Debug("directions failed", "origin", origin, "destination", dest, "error", err)
		return "Couldn't fetch traffic right now. " + routeError(err), true
	}
	return fmt.Sprintf("Route: %s → %s\nETA: %s\nDistance: %s",
		origin, dest, route.ETAText(), route.DistanceText()), true
}

func routeError(err error) string {
	if errors.Is(err, services.ErrNoRoute) {
		return replyNoRoute
	}
	return err.Error()
}

func (a *Assistant) currentWeather(ctx context.Context, t *turn) (string, bool) {
	if !reWeather.MatchString(t.lower) {
		return "", false
	}
	if a.weather == nil {
		return "Weather service error: weather is not configured", true
	}

	city := a.weather.DefaultCity()
	if m := reWeatherCity.FindStringSubmatch(t.lower); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			city = titleCase(name)
		}
	}

	cond, err := a.weather.Current(ctx, city)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return replyWeatherNotFound, true
	case errors.Is(err, services.ErrDecode):
		return replyWeatherDecode, true
	case err != nil:
		return "Weather service error: " + err.Error(), true
	}
	return fmt.Sprintf("🌤 Weather in %s: %s, %s°C", city, cond.Condition, formatTemp(cond.TempC)), true
}

// formatTemp renders a temperature the way a float prints in a chat reply:
// shortest form, always with a decimal point (31 → "31.0").
func formatTemp(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func (a *Assistant) askAI(ctx context.Context, t *turn) (string, bool) {
	if a.answerer == nil || !reAskAI.MatchString(t.lower) {
		return "", false
	}
	answer, err := a.answerer.Answer(ctx, t.raw)
	if err != nil {
		a.logger.Warn("ai answer failed", "error", err)
		return replyAIUnavailable, true
	}
	return answer, true
}

func (a *Assistant) lookup(ctx context.Context, t *turn) (string, bool) {
	if t.raw == "" {
		return "", false
	}
	if a.encyclopedia != nil {
		summary, err := a.encyclopedia.Summary(ctx, t.raw)
		if err != nil {
			a.logger.Debug("encyclopedia lookup failed", "error", err)
		} else if summary != "" {
			return summary, true
		}
	}
	if a.search != nil {
		snippets, err := a.search.Snippets(ctx, t.raw, a.searchLimit)
		if err != nil {
			a.logger.Debug("web search failed", "error", err)
		} else if snippets != "" {
			return snippets, true
		}
	}
	return "", false
}

// ---------- Personal data ----------

func (a *Assistant) listReminders(ctx context.Context, t *turn) (string, bool) {
	if !strings.Contains(t.lower, "padha chooskundham") && !strings.Contains(t.lower, "show reminders") {
		return "", false
	}
	entries, ok := a.entries(ctx, store.Reminders)
	if !ok {
		return replyStoreReadFailure, true
	}
	if len(entries) == 0 {
		return replyNoReminders, true
	}
	return joinEntries(entries, "%s – %s"), true
}

func (a *Assistant) setReminder(ctx context.Context, t *turn) (string, bool) {
	if !strings.Contains(t.lower, "set reminder") {
		return "", false
	}
	m := reSetReminder.FindStringSubmatch(t.lower)
	if m == nil {
		return "", false
	}
	task, when := m[1], m[2]

	if err := a.stores.Get(store.Reminders).Put(ctx, when, task); err != nil {
		a.logger.Error("saving reminder", "error", err)
		return replyStoreFailure, true
	}

	if a.reminders != nil {
		due, scheduled, err := a.reminders.Schedule(t.user, task, when)
		switch {
		case err != nil:
			a.logger.Warn("scheduling reminder", "error", err)
		case scheduled:
			a.logger.Debug("reminder will fire", "user", t.user, "due", due)
		}
	}
	return fmt.Sprintf("Reminder set: %s at %s", task, when), true
}

func (a *Assistant) addTask(ctx context.Context, t *turn) (string, bool) {
	if !strings.Contains(t.lower, "add task") {
		return "", false
	}
	m := reAddTask.FindStringSubmatch(t.lower)
	if m == nil {
		return "", false
	}
	if _, err := a.stores.Get(store.Todo).Append(ctx, m[1]); err != nil {
		a.logger.Error("saving task", "error", err)
		return replyStoreFailure, true
	}
	return "Task added: " + m[1], true
}

func (a *Assistant) listTasks(ctx context.Context, t *turn) (string, bool) {
	if !strings.Contains(t.lower, "show tasks") {
		return "", false
	}
	entries, ok := a.entries(ctx, store.Todo)
	if !ok {
		return replyStoreReadFailure, true
	}
	if len(entries) == 0 {
		return replyNoTasks, true
	}
	return "📝 Your tasks:\n" + joinEntries(entries, "%s. %s"), true
}

func (a *Assistant) addNote(ctx context.Context, t *turn) (string, bool) {
	if !strings.Contains(t.lower, "add note") {
		return "", false
	}
	m := reAddNote.FindStringSubmatch(t.lower)
	if m == nil {
		return "", false
	}
	if _, err := a.stores.Get(store.Notes).Append(ctx, m[1]); err != nil {
		a.logger.Error("saving note", "error", err)
		return replyStoreFailure, true
	}
	return "Note saved: " + m[1], true
}

func (a *Assistant) listNotes(ctx context.Context, t *turn) (string, bool) {
	if !strings.Contains(t.lower, "show notes") {
		return "", false
	}
	entries, ok := a.entries(ctx, store.Notes)
	if !ok {
		return replyStoreReadFailure, true
	}
	if len(entries) == 0 {
		return replyNoNotes, true
	}
	return "📓 Your notes:\n" + joinEntries(entries, "%s. %s"), true
}

func (a *Assistant) addEvent(ctx context.Context, t *turn) (string, bool) {
	if !strings.Contains(t.lower, "add event") {
		return "", false
	}
	m := reAddEvent.FindStringSubmatch(t.lower)
	if m == nil {
		return "", false
	}
	event, date := m[1], m[2]
	if err := a.stores.Get(store.Calendar).Put(ctx, date, event); err != nil {
		a.logger.Error("saving event", "error", err)
		return replyStoreFailure, true
	}
	return fmt.Sprintf("Event '%s' added on %s", event, date), true
}

func (a *Assistant) listEvents(ctx context.Context, t *turn) (string, bool) {
	if !strings.Contains(t.lower, "show events") {
		return "", false
	}
	entries, ok := a.entries(ctx, store.Calendar)
	if !ok {
		return replyStoreReadFailure, true
	}
	if len(entries) == 0 {
		return replyNoEvents, true
	}
	return "📅 Events:\n" + joinEntries(entries, "%s – %s"), true
}

func (a *Assistant) entries(ctx context.Context, kind store.Kind) ([]store.Entry, bool) {
	entries, err := a.stores.Get(kind).All(ctx)
	if err != nil {
		a.logger.Error("reading store", "kind", kind, "error", err)
		return nil, false
	}
	return entries, true
}

func joinEntries(entries []store.Entry, format string) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf(format, e.Key, e.Value)
	}
	return strings.Join(lines, "\n")
}
