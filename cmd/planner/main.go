// Command planner edits a travel itinerary from the terminal.
//
// Every invocation restores the local snapshot, applies one command, writes
// the snapshot back and, when PLANNER_API_URL is set, saves changed trips to
// the itinerary API before exiting. Online invocations first replace the
// local trips with the remote copy when the remote has any.
//
//	planner [-offline] [-profile id] [-data dir] <command> [args]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/itinerary-planner/internal/config"
	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/gateway"
	"github.com/pkordes/itinerary-planner/internal/itinerary"
	"github.com/pkordes/itinerary-planner/internal/localstore"
	"github.com/pkordes/itinerary-planner/internal/logger"
	"github.com/pkordes/itinerary-planner/internal/syncer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one planner invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(stderr, "planner:", err)
		return 1
	}
	cfg, err := config.LoadPlanner()
	if err != nil {
		fmt.Fprintln(stderr, "planner:", err)
		return 1
	}

	fs := flag.NewFlagSet("planner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	offline := fs.Bool("offline", false, "do not contact the itinerary API")
	fs.StringVar(&cfg.ProfileID, "profile", cfg.ProfileID, "remote profile id")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "local snapshot directory")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *offline {
		cfg.APIURL = ""
	}
	if fs.NArg() == 0 {
		usage(fs)
		return 2
	}

	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "planner: unknown command %q\n", fs.Arg(0))
		usage(fs)
		return 2
	}

	log := logger.New(stderr, cfg.LogLevel, logger.FormatText)

	sess, err := openSession(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(stderr, "planner:", err)
		return 1
	}

	cmdErr := cmd.run(&env{session: sess, out: stdout, ctx: ctx}, fs.Args()[1:])
	closeErr := sess.close(ctx)

	switch {
	case cmdErr != nil:
		fmt.Fprintf(stderr, "planner %s: %v\n", cmd.name, cmdErr)
		var ue usageError
		if errors.As(cmdErr, &ue) {
			fmt.Fprintf(stderr, "usage: planner %s %s\n", cmd.name, cmd.args)
			return 2
		}
		return 1
	case closeErr != nil:
		fmt.Fprintln(stderr, "planner:", closeErr)
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: planner [flags] <command> [args]")
	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
	fmt.Fprintln(out, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(out, "  %-15s %s\n", c.name, c.help)
	}
}

// session is the state of one invocation: the store restored from the local
// snapshot and, when online, the sync controller watching it.
type session struct {
	store *itinerary.Store
	snaps *localstore.Snapshots
	sync  *syncer.Controller // nil when offline
	rdb   *redis.Client      // nil when snapshots live in files
	log   *slog.Logger
	cfg   config.PlannerConfig

	// discard removes the local snapshot on close instead of writing it.
	discard bool
}

func openSession(ctx context.Context, cfg config.PlannerConfig, log *slog.Logger) (*session, error) {
	s := &session{log: log, cfg: cfg}

	var storage localstore.Storage
	if cfg.RedisAddr != "" {
		s.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		storage = localstore.NewRedisStorage(s.rdb)
	} else {
		storage = localstore.NewFileStorage(cfg.DataDir)
	}
	s.snaps = localstore.New(storage, log)

	initial, _, err := s.snaps.Load(ctx)
	if err != nil {
		s.closeRedis()
		return nil, fmt.Errorf("read local snapshot: %w", err)
	}
	s.store = itinerary.NewStore(initial)

	if cfg.APIURL != "" {
		gw := gateway.New(cfg.APIURL, cfg.ProfileID)
		s.sync = syncer.New(s.store, gw, syncer.Options{
			Debounce: cfg.Debounce,
			Timeout:  cfg.SaveTimeout,
			Logger:   log,
			OnStatus: func(st domain.SyncStatus) {
				log.Debug("sync status", "status", st)
			},
		})
		s.sync.Start(ctx)
		s.sync.LoadOnStart(ctx)
	}
	return s, nil
}

// close writes the local snapshot, then pushes any pending save and waits
// for it. The snapshot is written first so a failed save loses nothing.
func (s *session) close(ctx context.Context) error {
	defer s.closeRedis()

	if s.discard {
		if s.sync != nil {
			s.sync.Close()
		}
		return s.snaps.Clear(ctx)
	}

	var errs []error
	if err := s.snaps.Save(ctx, s.store.Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("write local snapshot: %w", err))
	}
	if s.sync != nil {
		flushCtx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout+time.Second)
		err := s.sync.Flush(flushCtx)
		cancel()
		s.sync.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("sync failed, changes kept locally: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *session) closeRedis() {
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
}
