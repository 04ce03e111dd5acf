// Command client drives the device-side library from a terminal: it keeps
// progress in a local SQLite file, queues coin changes while the database is
// unreachable and replays them when it comes back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/config"
	"github.com/botaqiy/botaqiy/internal/connectivity"
	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
	pgrepo "github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
	"github.com/botaqiy/botaqiy/internal/logger"
	"github.com/botaqiy/botaqiy/internal/metrics"
	"github.com/botaqiy/botaqiy/internal/repository"
	"github.com/botaqiy/botaqiy/internal/service"
	"github.com/botaqiy/botaqiy/internal/storage"
	"github.com/botaqiy/botaqiy/internal/syncqueue"
)

const usage = `usage: client [-user ID] [-store PATH] <command> [args]

commands:
  load                      print the current progress
  add N                     credit N coins
  deduct N                  debit N coins
  play SCENARIO ANSWER...   answer a built-in scenario and credit its points
  pending                   list queued changes
  drain                     replay queued changes now
  watch                     probe connectivity and replay on reconnect until interrupted
`

type app struct {
	userID   string
	logger   *zap.Logger
	store    *storage.LocalStore
	monitor  *connectivity.Monitor
	queue    *syncqueue.Queue
	replayer syncqueue.Replayer
	progress *service.ProgressService
	interval time.Duration
}

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id; empty uses the signed-out record")
	storePath := flag.String("store", "", "local store file (default from config)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *storePath != "" {
		cfg.Client.StorePath = *storePath
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := setup(ctx, cfg, lg, *userID)
	if err != nil {
		lg.Fatal("client setup failed", zap.Error(err))
	}
	defer cleanup()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cleanup()
		os.Exit(1)
	}
}

func setup(ctx context.Context, cfg *config.Config, lg *zap.Logger, userID string) (*app, func(), error) {
	dsn, err := cfg.DB.DSN()
	if err != nil {
		return nil, nil, err
	}

	// The pool connects on demand so the client starts without a network.
	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{MaxConns: 2, Lazy: true})
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewLocalStore(cfg.Client.StorePath)
	monitor := connectivity.NewMonitor(false, pool.Ping, lg)

	queue := syncqueue.New(store, metrics.NewSyncMetrics(prometheus.NewRegistry()), lg)

	validator := service.NewRequestValidator()
	transactor := postgres.NewTransactor(pool)
	syncService := service.NewSyncService(transactor, service.NewScoreService(transactor, validator, lg), lg)

	progress := service.NewProgressService(pgrepo.NewProgressRepository(pool), store, queue, monitor, lg)

	cleanup := func() {
		monitor.Stop()
		if err := store.Close(); err != nil {
			lg.Warn("failed to close local store", zap.Error(err))
		}
		pool.Close()
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	monitor.Check(probeCtx)
	cancel()

	return &app{
		userID:   userID,
		logger:   lg,
		store:    store,
		monitor:  monitor,
		queue:    queue,
		replayer: syncService,
		progress: progress,
		interval: cfg.Client.ProbeInterval,
	}, cleanup, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "load":
		a.progress.Load(ctx, a.userID)
		a.printProgress()
		return nil
	case "add", "deduct":
		return a.adjust(ctx, cmd, args)
	case "play":
		return a.play(ctx, args)
	case "pending":
		return a.pending(ctx)
	case "drain":
		return a.drain(ctx)
	case "watch":
		return a.watch(ctx)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func (a *app) adjust(ctx context.Context, cmd string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%s needs exactly one amount", cmd)
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil || amount < 0 {
		return fmt.Errorf("invalid amount %q", args[0])
	}

	a.progress.Load(ctx, a.userID)

	var ok bool
	if cmd == "add" {
		ok = a.progress.AddCoins(ctx, a.userID, amount)
	} else {
		ok = a.progress.DeductCoins(ctx, a.userID, amount)
	}
	if !ok {
		return errors.New("coins unchanged")
	}

	a.printProgress()
	return nil
}

// play scores a built-in scenario locally and credits the points as coins.
func (a *app) play(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("play needs a scenario id")
	}

	catalog, err := repository.NewScenarioRepository()
	if err != nil {
		return err
	}
	scenario, ok := catalog.GetByID(args[0])
	if !ok {
		return fmt.Errorf("unknown scenario %q", args[0])
	}

	answers := args[1:]
	if len(answers) != len(scenario.Questions) {
		return fmt.Errorf("%s has %d questions, got %d answers", scenario.ID, len(scenario.Questions), len(answers))
	}

	correct := 0
	for i, raw := range answers {
		choice, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid answer %q", raw)
		}
		if scenario.Questions[i].IsCorrect(choice) {
			correct++
		}
	}

	score, err := entities.CalculateScore(scenario.Difficulty, correct, len(scenario.Questions))
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d/%d correct (%.0f%%), %d points\n",
		scenario.Title, correct, len(scenario.Questions), score.Accuracy, score.Points)

	a.progress.Load(ctx, a.userID)
	if !a.progress.AddCoins(ctx, a.userID, score.Points) {
		return errors.New("points not credited")
	}

	a.printProgress()
	return nil
}

func (a *app) pending(ctx context.Context) error {
	items, err := a.queue.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("nothing queued")
		return nil
	}

	for _, item := range items {
		fmt.Printf("%s  %s %s  %s  %s\n",
			time.UnixMilli(item.Timestamp).Format(time.RFC3339),
			item.Action, item.Collection, item.ID, item.Payload)
	}
	return nil
}

func (a *app) drain(ctx context.Context) error {
	if !a.monitor.IsOnline() {
		return errors.New("offline, nothing replayed")
	}

	n, err := a.queue.Drain(ctx, a.replayer)
	fmt.Printf("replayed %d item(s)\n", n)
	return err
}

func (a *app) watch(ctx context.Context) error {
	if a.monitor.IsOnline() {
		if err := a.drain(ctx); err != nil {
			a.logger.Warn("initial drain failed", zap.Error(err))
		}
	}

	stopDrain := a.queue.DrainOnReconnect(ctx, a.monitor, a.replayer)
	defer stopDrain()

	if err := a.monitor.Start(ctx, a.interval); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func (a *app) printProgress() {
	p := a.progress.Progress()
	state := "offline"
	if a.monitor.IsOnline() {
		state = "online"
	}
	fmt.Printf("coins=%d level=%d streak=%d (%s)\n", p.Coins, p.Level, p.StreakDays, state)
}
