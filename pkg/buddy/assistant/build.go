package assistant

import (
	"log/slog"
	"time"

	"github.com/jholhewres/buddy/pkg/buddy/metrics"
	"github.com/jholhewres/buddy/pkg/buddy/services"
	"github.com/jholhewres/buddy/pkg/buddy/store"
)

// Settings is the part of the configuration the assistant reads.
type Settings struct {
	// Language is the reply translation target.
	Language string

	// Location is used for the date/time reply.
	Location *time.Location

	Services services.Config
}

// NewFromConfig wires an Assistant with the service clients described by
// cfg. reminders may be nil when delivery is disabled.
func NewFromConfig(cfg Settings, stores *store.Set, reminders ReminderScheduler, m *metrics.Metrics, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	svc := cfg.Services
	cache := services.NewLookupCache(svc.Cache)

	d := Deps{
		Stores:     stores,
		Router:     services.NewRoutingClient(svc.Routing, m),
		Weather:    services.NewWeatherClient(svc.Weather, cache, m),
		Reminders:  reminders,
		Translator: IdentityTranslator{},
		Language:   cfg.Language,
		Location:   cfg.Location,
		Metrics:    m,
		Logger:     logger,
	}

	// A nil *AIClient must not become a non-nil interface.
	if ai := services.NewAIClient(svc.AI, m); ai != nil {
		d.Answerer = ai
	} else {
		logger.Info("no AI key configured, AI answers disabled")
	}

	if svc.Knowledge.Enabled {
		d.Encyclopedia = services.NewWikipedia(svc.Knowledge, cache, m)
		d.Search = services.NewDuckDuckGo(svc.Knowledge, cache, m)
		d.SearchResults = svc.Knowledge.MaxResults
	}

	return New(d)
}
