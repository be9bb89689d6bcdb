package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"devbridge/cli/internal/actions"
	"devbridge/cli/internal/clipboard"
	"devbridge/cli/internal/command"
	"devbridge/cli/internal/config"
	"devbridge/cli/internal/db"
	"devbridge/cli/internal/dispatch"
	"devbridge/cli/internal/logging"
	"devbridge/cli/internal/pagestore"
	"devbridge/cli/internal/protocol"
	"devbridge/cli/internal/statestore"
	"devbridge/cli/internal/termstream"
	"devbridge/cli/internal/webhook"
)

// env bundles the long-lived pieces every command needs.
type env struct {
	cfg   config.Config
	gdb   *gorm.DB
	state *statestore.Store
	hook  *webhook.Client
}

func openEnv(cfg config.Config, component string) (*env, error) {
	gdb, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	state, err := statestore.NewStore(gdb)
	if err != nil {
		return nil, err
	}
	log := logging.NewLogger(logging.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: component,
	})
	hook := webhook.New(cfg.WebhookURL,
		webhook.WithLogger(log),
		webhook.WithRequestTimeout(cfg.RequestTimeout),
		webhook.WithHealthTimeout(cfg.HealthTimeout),
		webhook.WithStuckThreshold(cfg.StuckThreshold),
	)
	return &env{cfg: cfg, gdb: gdb, state: state, hook: hook}, nil
}

func (e *env) dispatcher() (*dispatch.Dispatcher, error) {
	tracker, err := actions.NewStore(e.state, actions.WithCapacity(e.cfg.ActionCapacity))
	if err != nil {
		return nil, err
	}
	d := dispatch.New(e.hook, tracker, clipboard.System(),
		dispatch.WithBusyWait(e.cfg.BusyWaitAttempts, e.cfg.BusyWaitInterval),
		dispatch.WithCompletionPoll(e.cfg.PollAttempts, e.cfg.PollInterval),
	)
	return d, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSendPrompt(ctx context.Context, cfg config.Config, opts command.SendOptions) error {
	e, err := openEnv(cfg, "send")
	if err != nil {
		return err
	}
	d, err := e.dispatcher()
	if err != nil {
		return err
	}
	out, err := d.Submit(ctx, dispatch.Submission{
		Prompt: opts.Prompt,
		Source: actions.Source(opts.Source),
		Wait:   opts.Wait,
	})
	if err != nil {
		return err
	}
	if err := printJSON(out); err != nil {
		return err
	}
	if !out.Delivered && !out.Fallback {
		return fmt.Errorf("prompt not delivered: %s", out.ErrorCode)
	}
	return nil
}

func runShowHealth(ctx context.Context, cfg config.Config) error {
	e, err := openEnv(cfg, "health")
	if err != nil {
		return err
	}
	health := e.hook.Health(ctx)
	ready := e.hook.Readiness(ctx)
	return printJSON(struct {
		Reachable bool                  `json:"reachable"`
		Health    *webhook.ServerHealth `json:"health,omitempty"`
		Readiness webhook.ReadyState    `json:"readiness"`
	}{Reachable: health != nil, Health: health, Readiness: ready})
}

func runShowQueue(ctx context.Context, cfg config.Config) error {
	e, err := openEnv(cfg, "queue")
	if err != nil {
		return err
	}
	q := e.hook.Queue(ctx)
	if q == nil {
		return fmt.Errorf("queue status unavailable at %s", cfg.WebhookURL)
	}
	return printJSON(q)
}

func runTestConnection(ctx context.Context, cfg config.Config) error {
	e, err := openEnv(cfg, "test")
	if err != nil {
		return err
	}
	res := e.hook.TestConnection(ctx)
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("connection test failed: %s", res.ErrorCode)
	}
	return nil
}

func runWatch(ctx context.Context, cfg config.Config, opts command.WatchOptions) error {
	e, err := openEnv(cfg, "watch")
	if err != nil {
		return err
	}
	prefs, err := termstream.LoadPrefs(e.state)
	if err != nil {
		return err
	}
	log := logging.NewLogger(logging.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: "termstream",
	})

	buffers := termstream.NewBuffers(prefs.MaxLinesPerTerminal)
	var client *termstream.Client
	client = termstream.NewClient(cfg.TerminalWSURL, termstream.RealDialer{}, buffers,
		termstream.WithLogger(log),
		termstream.WithAutoReconnect(cfg.AutoReconnect),
		termstream.WithReconnectPolicy(cfg.ReconnectBaseDelay, cfg.MaxReconnectAttempts),
		termstream.WithEvents(termstream.Events{
			OnState: func(s termstream.State) {
				fmt.Fprintf(os.Stderr, "[%s]\n", s)
				if s != termstream.StateConnected {
					return
				}
				go func() {
					_ = client.RequestList(ctx)
					if opts.All {
						_ = client.SubscribeAll(ctx)
					} else if opts.TerminalID != "" {
						_ = client.Subscribe(ctx, opts.TerminalID)
					}
				}()
			},
			OnMessage: func(msg protocol.ServerMessage) {
				if msg.Type == "output" {
					fmt.Print(msg.Data)
				}
			},
		}),
	)
	return client.Run(ctx)
}

func runListActions(ctx context.Context, cfg config.Config, limit int) error {
	e, err := openEnv(cfg, "actions")
	if err != nil {
		return err
	}
	store, err := actions.NewStore(e.state, actions.WithCapacity(cfg.ActionCapacity))
	if err != nil {
		return err
	}
	return printJSON(store.Recent(limit))
}

func runRetryAction(ctx context.Context, cfg config.Config, id string) error {
	e, err := openEnv(cfg, "actions")
	if err != nil {
		return err
	}
	d, err := e.dispatcher()
	if err != nil {
		return err
	}
	out, err := d.Retry(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runClearActions(ctx context.Context, cfg config.Config, completedOnly bool) error {
	e, err := openEnv(cfg, "actions")
	if err != nil {
		return err
	}
	store, err := actions.NewStore(e.state, actions.WithCapacity(cfg.ActionCapacity))
	if err != nil {
		return err
	}
	if completedOnly {
		return store.ClearCompleted()
	}
	return store.ClearAll()
}

func runNewPersona(ctx context.Context, cfg config.Config, seed int64) error {
	e, err := openEnv(cfg, "autofill")
	if err != nil {
		return err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	persona := pagestore.NewPersona(seed)
	store, err := pagestore.NewStore(e.state)
	if err != nil {
		return err
	}
	ds, err := store.Add(persona.Dataset(persona.FirstName + " " + persona.LastName))
	if err != nil {
		return err
	}
	return printJSON(ds)
}

func runNextAutofill(ctx context.Context, cfg config.Config) error {
	e, err := openEnv(cfg, "autofill")
	if err != nil {
		return err
	}
	store, err := pagestore.NewStore(e.state)
	if err != nil {
		return err
	}
	ds, ok, err := store.Next()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no autofill datasets stored")
	}
	return printJSON(ds)
}

func runMigrateUp(ctx context.Context, cfg config.Config) error {
	gdb, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	return db.MigrateUp(gdb)
}
