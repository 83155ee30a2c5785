package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omtlabs/timesheet-hub/internal/notify"
	"github.com/omtlabs/timesheet-hub/internal/routing"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/ports"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/infrastructure/persistence"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/services"
)

// HandlerOptions lets tests and alternate mains inject stores; anything nil
// is wired from the environment.
type HandlerOptions struct {
	Config     *Config
	Sites      map[string]Site
	Rows       ports.RowStore
	Records    ports.StatusRecordStore
	Ledger     ports.TotalTimeLedger
	Notifier   ports.Notifier
	Authorizer authorizer
}

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		cfg = &loaded
	}

	sites := opts.Sites
	if sites == nil {
		loaded, err := loadSites(cfg.SitesPath)
		if err != nil {
			return nil, err
		}
		sites = loaded
	}

	rows := opts.Rows
	records := opts.Records
	ledger := opts.Ledger
	if rows == nil || records == nil || ledger == nil {
		pool, err := pgxpool.New(context.Background(), cfg.DSN())
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = persistence.NewRowPGStore(pool)
		}
		if records == nil {
			records = persistence.NewStatusRecordPGStore(pool)
		}
		if ledger == nil {
			ledger = persistence.NewLedgerPGStore(pool)
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		if cfg.WebhookURL != "" {
			notifier = notify.NewWebhookNotifier(cfg.WebhookURL, nil, nil)
		} else {
			notifier = notify.Disabled{}
		}
	}

	auth := opts.Authorizer
	if auth == nil {
		a, err := loadAuthorizer(*cfg)
		if err != nil {
			return nil, err
		}
		auth = a
	}

	svc := services.NewService(rows, records, notifier, ledger, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		routing.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/api/timesheet/panel", func(w http.ResponseWriter, r *http.Request) {
		handlePanel(w, r, svc, sites)
	})
	mux.HandleFunc("/api/timesheet/panel/confirm", func(w http.ResponseWriter, r *http.Request) {
		handlePanelConfirm(w, r, svc, sites)
	})
	mux.HandleFunc("/api/timesheet/panel/management", func(w http.ResponseWriter, r *http.Request) {
		handlePanelManagement(w, r, svc, sites)
	})
	mux.HandleFunc("/api/timesheet/entries/status", func(w http.ResponseWriter, r *http.Request) {
		handleEntryStatus(w, r, svc)
	})
	mux.HandleFunc("/api/timesheet/entries/postpone", func(w http.ResponseWriter, r *http.Request) {
		handleEntryPostpone(w, r, svc)
	})
	mux.HandleFunc("/api/timesheet/entries/split", func(w http.ResponseWriter, r *http.Request) {
		handleEntrySplit(w, r, svc)
	})
	mux.HandleFunc("/api/timesheet/entries/delete", func(w http.ResponseWriter, r *http.Request) {
		handleEntryDelete(w, r, svc)
	})
	mux.HandleFunc("/api/timesheet/status-records", func(w http.ResponseWriter, r *http.Request) {
		handleStatusRecords(w, r, svc)
	})

	var h http.Handler = mux
	h = authzMiddleware(auth, h)
	h = principalMiddleware(h)
	h = siteMiddleware(sites, h)
	h = healthBypass(mux, h)
	return h, nil
}

// healthBypass keeps the health probe outside the site/principal chain.
func healthBypass(plain http.Handler, guarded http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			plain.ServeHTTP(w, r)
			return
		}
		guarded.ServeHTTP(w, r)
	})
}
