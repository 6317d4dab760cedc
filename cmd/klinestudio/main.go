package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"KlineStudio/internal/config"
	"KlineStudio/internal/notifier"
	"KlineStudio/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "klinestudio",
		Usage: "Generate themed K-line chart specs for A-share daily bars",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before the environment is read",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			generateCommand(),
			watchCommand(),
			themesCommand(),
			historyCommand(),
			symbolsCommand(),
		},
	}
}

// loadConfig reads the config and applies the command's flag overrides.
// Batch flags only apply to commands that declare them.
func loadConfig(cmd *cli.Command, withBatch bool) (*config.Config, error) {
	config.LoadDotenv(cmd.String("env-file"))
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if withBatch {
		applyBatchFlags(cmd, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "theme", Aliases: []string{"t"}, Usage: "Theme name, or \"all\""},
		&cli.StringFlag{Name: "periods", Aliases: []string{"p"}, Usage: "Comma separated multi-day periods, e.g. 5,10,20"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Process at most this many symbols"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Symbols processed in parallel"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory"},
		&cli.StringFlag{Name: "format", Usage: "Chart spec format (json, msgpack)"},
		&cli.StringFlag{Name: "start", Usage: "First trade date, YYYYMMDD"},
		&cli.StringFlag{Name: "end", Usage: "Last trade date, YYYYMMDD"},
		&cli.BoolFlag{Name: "kline-only", Usage: "Only render overview charts"},
		&cli.BoolFlag{Name: "candle-only", Usage: "Only render candle charts"},
		&cli.BoolFlag{Name: "single-only", Usage: "Only render daily charts"},
		&cli.BoolFlag{Name: "multi-only", Usage: "Only render multi-day charts"},
		&cli.BoolFlag{Name: "clear", Usage: "Clear each target directory before rendering"},
		&cli.BoolFlag{Name: "resume", Usage: "Skip targets already rendered from identical data"},
	}
}

func applyBatchFlags(cmd *cli.Command, cfg *config.Config) {
	set := func(name string) bool { return cmd.IsSet(name) }
	if set("theme") {
		cfg.Batch.Theme = cmd.String("theme")
	}
	if set("periods") {
		cfg.Batch.Periods = nil
		for _, p := range strings.Split(cmd.String("periods"), ",") {
			if p = strings.TrimSpace(p); p == "" {
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil {
				n = -1
			}
			cfg.Batch.Periods = append(cfg.Batch.Periods, n)
		}
	}
	if set("limit") {
		cfg.Batch.SymbolLimit = int(cmd.Int("limit"))
	}
	if set("workers") {
		cfg.Batch.Workers = int(cmd.Int("workers"))
	}
	if set("out") {
		cfg.Output.Dir = cmd.String("out")
	}
	if set("format") {
		cfg.Output.Format = cmd.String("format")
	}
	if set("start") {
		cfg.Source.Start = cmd.String("start")
	}
	if set("end") {
		cfg.Source.End = cmd.String("end")
	}
	flags := map[string]*bool{
		"kline-only":  &cfg.Batch.KlineOnly,
		"candle-only": &cfg.Batch.CandleOnly,
		"single-only": &cfg.Batch.SingleOnly,
		"multi-only":  &cfg.Batch.MultiOnly,
		"clear":       &cfg.Batch.ClearBeforeRun,
		"resume":      &cfg.Batch.Resume,
	}
	for name, dst := range flags {
		if set(name) {
			*dst = cmd.Bool(name)
		}
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Render charts for the given symbols, or for the source's symbol list",
		ArgsUsage: "[symbol...]",
		Flags: append(batchFlags(),
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Hide the progress bar"},
		),
		Action: generateAction,
	}
}

func generateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fetcher, lister, err := a.source()
	if err != nil {
		return err
	}
	symbols := cmd.Args().Slice()
	if len(symbols) == 0 {
		if symbols, err = lister.ListSymbols(ctx); err != nil {
			return err
		}
	}

	var progress io.Writer
	if !cmd.Bool("quiet") {
		progress = cmd.Root().ErrWriter
		if progress == nil {
			progress = os.Stderr
		}
	}
	rec := a.recorder()
	o, err := a.orchestrator(fetcher, rec, progress)
	if err != nil {
		return err
	}

	report, err := o.Run(ctx, symbols)
	if err != nil {
		return err
	}
	if cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			a.log.Warn("write metrics textfile", zap.Error(err))
		}
	}
	if err := report.Render(writer(cmd)); err != nil {
		return err
	}
	if cfg.NotifierEnabled() {
		n := notifier.NewTelegramNotifier(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, a.log)
		if err := n.SendWithRetry(ctx, notifier.FormatRunReport(report), 3); err != nil {
			a.log.Warn("send run report", zap.Error(err))
		}
	}
	if !report.OK() {
		return fmt.Errorf("%d of %d targets failed", len(report.Failures), report.Planned)
	}
	return nil
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run generation on the configured cron schedule and answer Telegram commands",
		Flags: append(batchFlags(),
			&cli.StringFlag{Name: "cron", Usage: "Override schedule.cron (six fields, seconds first)"},
			&cli.BoolFlag{Name: "run-on-start", Usage: "Run once immediately", Sources: cli.EnvVars("RUN_ON_START")},
		),
		Action: watchAction,
	}
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if cmd.IsSet("cron") {
		cfg.Schedule.Cron = cmd.String("cron")
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fetcher, lister, err := a.source()
	if err != nil {
		return err
	}
	rec := a.recorder()
	o, err := a.orchestrator(fetcher, rec, nil)
	if err != nil {
		return err
	}

	var n notifier.Notifier = notifier.Nop{}
	var tn *notifier.TelegramNotifier
	if cfg.NotifierEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, a.log)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, o, lister, n, rec, a.log)
	sched.Metrics = a.metrics
	sched.MetricsTextfile = cfg.Metrics.Textfile
	sched.Timeout = cfg.Schedule.Timeout
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		a.log.Info("telegram polling started")
	}
	if cmd.Bool("run-on-start") {
		a.log.Info("run-on-start enabled, executing generate task now")
		go func() {
			if _, err := sched.RunNow(); err != nil {
				a.log.Error("initial run failed", zap.Error(err))
			}
		}()
	}

	a.log.Info("klinestudio is running, press Ctrl+C to stop", zap.String("cron", cfg.Schedule.Cron), zap.Time("next", sched.Next()))
	<-ctx.Done()
	a.log.Info("shutdown signal received, stopping")
	return nil
}

func themesCommand() *cli.Command {
	return &cli.Command{
		Name:  "themes",
		Usage: "List the available themes",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			registry, err := a.registry()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(writer(cmd))
			table.SetHeader([]string{"Theme", "Style", "Indicators", "Up", "Down"})
			for _, th := range registry.ListAll() {
				table.Append([]string{
					th.Name,
					th.Display.Style,
					strings.Join(th.IndicatorNames(), ","),
					th.Colors.Up,
					th.Colors.Down,
				})
			}
			table.Render()
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Number of runs"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			runs, err := a.recorder().RecentRuns(int(cmd.Int("limit")))
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(writer(cmd))
			table.SetHeader([]string{"Run", "Started", "Finished", "Symbols", "Rendered", "Skipped", "Failed"})
			for _, r := range runs {
				finished := "-"
				if !r.FinishedAt.IsZero() {
					finished = r.FinishedAt.Format("2006-01-02 15:04:05")
				}
				if r.Cancelled {
					finished += " (cancelled)"
				}
				table.Append([]string{
					r.ID,
					r.StartedAt.Format("2006-01-02 15:04:05"),
					finished,
					strconv.Itoa(r.Symbols),
					strconv.Itoa(r.Succeeded),
					strconv.Itoa(r.Skipped),
					strconv.Itoa(r.Failed),
				})
			}
			table.Render()
			return nil
		},
	}
}

func symbolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "symbols",
		Usage: "Print the symbol list of the configured source",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			_, lister, err := a.source()
			if err != nil {
				return err
			}
			symbols, err := lister.ListSymbols(ctx)
			if err != nil {
				return err
			}
			for _, s := range symbols {
				fmt.Fprintln(writer(cmd), s)
			}
			return nil
		},
	}
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
