// Package autosync periodically and opportunistically invokes the sync
// engine: on a timer, when connectivity returns, and when the local store
// changes on disk. It is a consumer of the engine, not part of it — the
// engine provides no mutual exclusion of its own, so the scheduler is the
// one place that serializes sync invocations.
package autosync

import (
	"context"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/contactrack/contactrack/internal/backup"
	"github.com/contactrack/contactrack/internal/contacts"
)

// Syncer is the engine entry point the scheduler drives.
// *backup.Coordinator satisfies it.
type Syncer interface {
	SyncWithLocal(ctx context.Context, people []contacts.Person) backup.Outcome
}

// SessionStatus exposes the sign-in check. The scheduler only syncs when a
// session already exists — it never launches the interactive consent flow.
type SessionStatus interface {
	SignedIn() bool
}

// Loader reads the local dataset for upload comparison.
type Loader interface {
	Load(ctx context.Context) ([]contacts.Person, error)
}

// Probe timing for the connectivity check.
const (
	probeAddr    = "www.googleapis.com:443"
	probeTimeout = 3 * time.Second
)

// debounceDelay batches bursts of store-file events into one sync trigger.
const debounceDelay = 30 * time.Second

// Options configures a Scheduler.
type Options struct {
	Syncer  Syncer
	Session SessionStatus
	Loader  Loader

	// Interval is the periodic sync cadence.
	Interval time.Duration

	// MinInterval is the minimum gap since the last successful sync
	// before another attempt is made. Enforced on the monotonic clock.
	MinInterval time.Duration

	// StatePath persists the enabled flag and last-sync instant across
	// runs. Empty disables persistence.
	StatePath string

	// WatchPath is the local store file whose edits trigger a sync. Its
	// containing directory is watched so sidecar writes (WAL, journal)
	// count as edits too. Empty disables the watcher.
	WatchPath string

	Logger *slog.Logger
}

// Scheduler drives the sync engine. All sync invocations funnel through a
// singleflight group, so overlapping triggers (tick + file event + manual)
// collapse into a single engine call.
type Scheduler struct {
	syncer  Syncer
	session SessionStatus
	loader  Loader

	interval    time.Duration
	minInterval time.Duration
	watchPath   string
	debounce    time.Duration
	logger      *slog.Logger

	state *stateFile

	// probe checks connectivity. Tests override it.
	probe func() bool

	group singleflight.Group

	mu       sync.Mutex
	enabled  bool
	lastSync time.Time // monotonic; zero means never synced this process
	online   bool
}

// New creates a Scheduler. Persisted state (enabled flag) is loaded from
// StatePath when present.
func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		syncer:      opts.Syncer,
		session:     opts.Session,
		loader:      opts.Loader,
		interval:    opts.Interval,
		minInterval: opts.MinInterval,
		watchPath:   opts.WatchPath,
		debounce:    debounceDelay,
		logger:      logger,
		state:       newStateFile(opts.StatePath, logger),
		probe:       probeConnectivity,
		online:      true,
	}

	st := s.state.load()
	s.enabled = st.Enabled

	return s
}

// Enabled reports whether auto-sync is currently on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enabled
}

// Toggle flips the enabled flag, persists it, and returns the new value.
func (s *Scheduler) Toggle() bool {
	s.mu.Lock()
	s.enabled = !s.enabled
	enabled := s.enabled
	s.mu.Unlock()

	s.state.save(State{Enabled: enabled})

	s.logger.Info("auto-sync toggled", slog.Bool("enabled", enabled))

	return enabled
}

// Run blocks, driving periodic and opportunistic syncs until ctx is
// canceled. It never launches interactive sign-in: sync attempts while
// signed out are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	events := s.watchStore(ctx)

	// Reconnect detection runs on a faster cadence than the sync tick so
	// an outage ending mid-interval still gets an opportunistic sync.
	probeTicker := time.NewTicker(time.Minute)
	defer probeTicker.Stop()

	s.logger.Info("auto-sync scheduler running",
		slog.Duration("interval", s.interval),
		slog.Duration("min_interval", s.minInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-sync scheduler stopping")
			return ctx.Err()

		case <-ticker.C:
			s.Trigger(ctx, "timer")

		case <-probeTicker.C:
			if s.checkReconnect() {
				s.Trigger(ctx, "reconnect")
			}

		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}

			s.Trigger(ctx, "local-change")
		}
	}
}

// Trigger attempts a sync now, subject to the enabled flag, sign-in state,
// connectivity, and the minimum-interval guard. Concurrent triggers
// collapse into one engine invocation.
func (s *Scheduler) Trigger(ctx context.Context, reason string) {
	s.mu.Lock()
	enabled := s.enabled
	sinceLast := time.Since(s.lastSync)
	neverSynced := s.lastSync.IsZero()
	s.mu.Unlock()

	if !enabled {
		return
	}

	if !s.session.SignedIn() {
		s.logger.Debug("auto-sync skipped: not signed in", slog.String("reason", reason))
		return
	}

	if !neverSynced && sinceLast < s.minInterval {
		s.logger.Debug("auto-sync skipped: min interval not elapsed",
			slog.String("reason", reason),
			slog.Duration("since_last", sinceLast),
		)

		return
	}

	if !s.probe() {
		s.setOnline(false)
		s.logger.Debug("auto-sync skipped: offline", slog.String("reason", reason))

		return
	}

	s.setOnline(true)

	_, _, _ = s.group.Do("sync", func() (any, error) {
		s.runSync(ctx, reason)
		return nil, nil
	})
}

// runSync loads the local dataset and invokes the engine once.
func (s *Scheduler) runSync(ctx context.Context, reason string) {
	s.logger.Info("auto-sync starting", slog.String("reason", reason))

	people, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Error("auto-sync: loading local contacts failed",
			slog.String("error", err.Error()))

		return
	}

	outcome := s.syncer.SyncWithLocal(ctx, people)
	if !outcome.Succeeded {
		s.logger.Warn("auto-sync failed", slog.String("message", outcome.Message))
		return
	}

	s.mu.Lock()
	s.lastSync = time.Now()
	s.mu.Unlock()

	s.logger.Info("auto-sync complete",
		slog.String("message", outcome.Message),
		slog.String("resolution", string(outcome.Resolution)),
	)
}

// checkReconnect probes connectivity and reports an offline→online edge.
func (s *Scheduler) checkReconnect() bool {
	online := s.probe()

	s.mu.Lock()
	wasOnline := s.online
	s.online = online
	s.mu.Unlock()

	return online && !wasOnline
}

func (s *Scheduler) setOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}

// watchStore watches the local store file and emits debounced change
// notifications. Returns a nil channel (blocks forever in select) when
// watching is disabled or unavailable.
func (s *Scheduler) watchStore(ctx context.Context) <-chan struct{} {
	if s.watchPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("store watcher unavailable", slog.String("error", err.Error()))
		return nil
	}

	// SQLite in WAL mode writes to contacts.db-wal between checkpoints, so
	// watching the db file alone misses edits until the connection closes.
	// Watch the directory and match the db file and its sidecars by name.
	dir := filepath.Dir(s.watchPath)
	base := filepath.Base(s.watchPath)

	if err := watcher.Add(dir); err != nil {
		s.logger.Warn("cannot watch store directory",
			slog.String("path", dir),
			slog.String("error", err.Error()),
		)
		watcher.Close()

		return nil
	}

	out := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()
		defer close(out)

		var debounce *time.Timer

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}

				if !strings.HasPrefix(filepath.Base(ev.Name), base) {
					continue
				}

				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}

				if debounce == nil {
					debounce = time.AfterFunc(s.debounce, func() {
						select {
						case out <- struct{}{}:
						default:
						}
					})
				} else {
					debounce.Reset(s.debounce)
				}

			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}

				s.logger.Warn("store watcher error", slog.String("error", watchErr.Error()))
			}
		}
	}()

	return out
}

// probeConnectivity dials the Drive API endpoint to decide online state.
func probeConnectivity() bool {
	conn, err := net.DialTimeout("tcp", probeAddr, probeTimeout)
	if err != nil {
		return false
	}

	conn.Close()

	return true
}
