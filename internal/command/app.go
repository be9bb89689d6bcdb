package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"devbridge/cli/internal/config"
)

// SendOptions carries flags for the send command.
type SendOptions struct {
	Prompt string
	Source string
	Wait   bool
}

type WatchOptions struct {
	TerminalID string
	All        bool
}

type Deps struct {
	LoadConfig     func() config.Config
	SendPrompt     func(ctx context.Context, cfg config.Config, opts SendOptions) error
	ShowHealth     func(ctx context.Context, cfg config.Config) error
	ShowQueue      func(ctx context.Context, cfg config.Config) error
	TestConnection func(ctx context.Context, cfg config.Config) error
	Watch          func(ctx context.Context, cfg config.Config, opts WatchOptions) error
	ListActions    func(ctx context.Context, cfg config.Config, limit int) error
	RetryAction    func(ctx context.Context, cfg config.Config, id string) error
	ClearActions   func(ctx context.Context, cfg config.Config, completedOnly bool) error
	NewPersona     func(ctx context.Context, cfg config.Config, seed int64) error
	NextAutofill   func(ctx context.Context, cfg config.Config) error
	MigrateUp      func(ctx context.Context, cfg config.Config) error
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "devbridge",
		Usage: "developer console bridge for the editor assistant",
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "deliver a prompt to the editor assistant",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Required: true},
					&cli.StringFlag{Name: "source", Value: "manual", Usage: "logs, sticky-notes or manual"},
					&cli.BoolFlag{Name: "wait", Usage: "poll the request to completion"},
				},
				Action: func(ctx *cli.Context) error {
					if deps.SendPrompt == nil {
						return errors.New("send is not configured")
					}
					return deps.SendPrompt(ctx.Context, loadConfig(deps), SendOptions{
						Prompt: ctx.String("prompt"),
						Source: ctx.String("source"),
						Wait:   ctx.Bool("wait"),
					})
				},
			},
			{
				Name:  "health",
				Usage: "show extension health and readiness",
				Action: func(ctx *cli.Context) error {
					if deps.ShowHealth == nil {
						return errors.New("health is not configured")
					}
					return deps.ShowHealth(ctx.Context, loadConfig(deps))
				},
			},
			{
				Name:  "queue",
				Usage: "show the server-side request queue",
				Action: func(ctx *cli.Context) error {
					if deps.ShowQueue == nil {
						return errors.New("queue is not configured")
					}
					return deps.ShowQueue(ctx.Context, loadConfig(deps))
				},
			},
			{
				Name:  "test",
				Usage: "run a connectivity test against the extension",
				Action: func(ctx *cli.Context) error {
					if deps.TestConnection == nil {
						return errors.New("test is not configured")
					}
					return deps.TestConnection(ctx.Context, loadConfig(deps))
				},
			},
			{
				Name:  "watch",
				Usage: "stream terminal output from the extension",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "terminal", Usage: "terminal id to subscribe to"},
					&cli.BoolFlag{Name: "all", Usage: "subscribe to every terminal"},
				},
				Action: func(ctx *cli.Context) error {
					if deps.Watch == nil {
						return errors.New("watch is not configured")
					}
					return deps.Watch(ctx.Context, loadConfig(deps), WatchOptions{
						TerminalID: ctx.String("terminal"),
						All:        ctx.Bool("all"),
					})
				},
			},
			{
				Name:  "actions",
				Usage: "inspect the outgoing request history",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list recent actions",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20},
						},
						Action: func(ctx *cli.Context) error {
							if deps.ListActions == nil {
								return errors.New("actions list is not configured")
							}
							return deps.ListActions(ctx.Context, loadConfig(deps), ctx.Int("limit"))
						},
					},
					{
						Name:      "retry",
						Usage:     "resubmit a failed action by id",
						ArgsUsage: "<action-id>",
						Action: func(ctx *cli.Context) error {
							if deps.RetryAction == nil {
								return errors.New("actions retry is not configured")
							}
							if ctx.Args().Len() != 1 {
								return errors.New("action id is required")
							}
							return deps.RetryAction(ctx.Context, loadConfig(deps), ctx.Args().First())
						},
					},
					{
						Name:  "clear",
						Usage: "clear action history",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "completed", Usage: "only remove delivered/copied actions"},
						},
						Action: func(ctx *cli.Context) error {
							if deps.ClearActions == nil {
								return errors.New("actions clear is not configured")
							}
							return deps.ClearActions(ctx.Context, loadConfig(deps), ctx.Bool("completed"))
						},
					},
				},
			},
			{
				Name:  "persona",
				Usage: "generate an autofill persona dataset",
				Subcommands: []*cli.Command{
					{
						Name:  "new",
						Usage: "generate and store a persona",
						Flags: []cli.Flag{
							&cli.Int64Flag{Name: "seed", Usage: "seed for a reproducible persona"},
						},
						Action: func(ctx *cli.Context) error {
							if deps.NewPersona == nil {
								return errors.New("persona new is not configured")
							}
							return deps.NewPersona(ctx.Context, loadConfig(deps), ctx.Int64("seed"))
						},
					},
				},
			},
			{
				Name:  "autofill",
				Usage: "page-store autofill helpers",
				Subcommands: []*cli.Command{
					{
						Name:  "next",
						Usage: "print the next dataset in rotation",
						Action: func(ctx *cli.Context) error {
							if deps.NextAutofill == nil {
								return errors.New("autofill next is not configured")
							}
							return deps.NextAutofill(ctx.Context, loadConfig(deps))
						},
					},
				},
			},
			{
				Name:  "migrate",
				Usage: "run database migration",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply pending migrations",
						Action: func(ctx *cli.Context) error {
							if deps.MigrateUp == nil {
								return errors.New("migrate up is not configured")
							}
							return deps.MigrateUp(ctx.Context, loadConfig(deps))
						},
					},
				},
			},
		},
	}
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}
