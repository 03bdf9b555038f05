// Package service owns per-session dashboard state and orchestrates loads:
// reference resolution, the retrieval chain, role resolution, filtering and
// load history.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/logging"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/retrieval"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/store"
)

var (
	// ErrLoadSuperseded is returned to a load that a newer load or a reset replaced.
	ErrLoadSuperseded = errors.New("load superseded by a newer request")

	// ErrEmptySource is returned for blank input.
	ErrEmptySource = errors.New("no sheet source given")

	// ErrNoSavedSource is returned by Reload when nothing is saved.
	ErrNoSavedSource = errors.New("no saved source for this session")

	// ErrNoData is returned when an operation needs a loaded dataset.
	ErrNoData = errors.New("no data loaded")
)

// User-facing feedback texts.
const (
	msgEmptySource = "Please enter a Google Sheets link or sheet ID."
	msgBadSource   = "Could not extract a Google Sheet ID. Use a docs/drive link or a raw sheet ID."
	msgLoadFailed  = "Unable to load this sheet. Confirm the sheet is shared for public viewing and the link/ID is correct. Details: "
	msgReset       = "Cleared saved source, filters, table, and scorecards."
)

// Loader produces a dataset for a reference. *retrieval.Chain implements it.
type Loader interface {
	Load(ctx context.Context, ref core.SheetReference) (retrieval.Result, error)
}

// Options tunes the service. Zero values select defaults.
type Options struct {
	HistoryLimit       int
	SessionTTL         time.Duration
	LoadTimeout        time.Duration
	MaxConcurrentLoads int
	LoadWait           time.Duration
}

const (
	defaultHistoryLimit = 20
	defaultSessionTTL   = 12 * time.Hour
	defaultLoadTimeout  = 90 * time.Second
)

// Service is the dashboard controller.
type Service struct {
	loader  Loader
	store   store.Store
	limiter *LoadLimiter
	flights singleflight.Group
	opts    Options
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a service.
func New(loader Loader, st store.Store, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadTimeout
	}

	return &Service{
		loader:   loader,
		store:    st,
		limiter:  NewLoadLimiter(opts.MaxConcurrentLoads, opts.LoadWait),
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// session returns the session for id, creating it on first use.
func (s *Service) session(id string) *Session {
	now := s.now()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(id, now)
		s.sessions[id] = sess
	}
	s.mu.Unlock()

	sess.touch(now)
	return sess
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// LimiterStatus reports load slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForLoads blocks until running chain runs finish or ctx is done.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ----------------------------------------------------------------------------
// Load
// ----------------------------------------------------------------------------

// LoadOptions describes how a load was triggered.
type LoadOptions struct {
	// FromSaved marks an automatic load of the saved source; the source is
	// not saved again and the feedback says so.
	FromSaved bool
}

// Load resolves raw, runs the retrieval chain and installs the outcome.
//
// A successful load replaces the session dataset; any failure after the
// input was accepted clears it. Starting a load stops the session's previous
// load from waiting; that call returns ErrLoadSuperseded without touching
// state. The shared chain run it was waiting on keeps going until it
// finishes or LoadTimeout expires, and holds its limiter slot meanwhile.
func (s *Service) Load(ctx context.Context, sessionID, raw string, opts LoadOptions) (View, error) {
	sess := s.session(sessionID)
	raw = strings.TrimSpace(raw)

	if raw == "" {
		st := sess.replace(func(prev State) State {
			prev.Feedback = Feedback{Message: msgEmptySource, IsError: true, Code: core.MapError(ErrEmptySource).Code}
			return prev
		})
		return buildView(st), ErrEmptySource
	}

	logger := logging.WithFields(ctx, "session_id", sessionID)

	if !opts.FromSaved {
		if err := s.store.SaveSource(ctx, sessionID, raw); err != nil {
			logger.Warn("failed to save source", "error", err)
		}
	}

	loadCtx, gen := sess.begin(ctx)
	defer sess.finish(gen)

	start := s.now()
	ref := core.ResolveReference(raw)
	logger = logger.With("sheet_id", ref.SheetID)

	if ref.IsZero() {
		err := &core.ReferenceParseError{Input: raw}
		st, ok := sess.install(gen, func(prev State) State {
			return emptyState(prev.Criteria, Feedback{Message: msgBadSource, IsError: true, Code: core.MapError(err).Code})
		})
		if !ok {
			return buildView(st), ErrLoadSuperseded
		}
		s.record(ctx, sessionID, raw, ref, "", 0, err, start)
		return buildView(st), err
	}

	logger.Info("load started", "from_saved", opts.FromSaved)
	res, err := s.fetch(loadCtx, ref)

	if err != nil {
		st, ok := sess.install(gen, func(prev State) State {
			return emptyState(prev.Criteria, Feedback{
				Message: msgLoadFailed + err.Error(),
				IsError: true,
				Code:    core.MapError(err).Code,
			})
		})
		if !ok {
			logger.Info("load superseded", "duration_ms", s.now().Sub(start).Milliseconds())
			return buildView(st), ErrLoadSuperseded
		}

		failLogger := logger
		var composite *core.CompositeRetrievalError
		if errors.As(err, &composite) {
			failLogger = logger.With("strategies", composite.Strategies())
		}
		failLogger.Warn("load failed",
			"error", err,
			"duration_ms", s.now().Sub(start).Milliseconds(),
		)
		s.record(ctx, sessionID, raw, ref, res.Source, 0, err, start)
		return buildView(st), err
	}

	st, ok := sess.install(gen, func(prev State) State {
		return loadedState(res.Dataset, res.Source, prev.Criteria, Feedback{
			Message: loadedMessage(len(res.Dataset.Rows), opts.FromSaved, res.Source),
		}, s.now())
	})
	if !ok {
		logger.Info("load superseded", "duration_ms", s.now().Sub(start).Milliseconds())
		return buildView(st), ErrLoadSuperseded
	}

	logger.Info("load succeeded",
		"source", res.Source,
		"rows", len(res.Dataset.Rows),
		"columns", len(res.Dataset.Headers),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	s.record(ctx, sessionID, raw, ref, res.Source, len(res.Dataset.Rows), nil, start)
	return buildView(st), nil
}

// fetch runs the chain once per reference across all sessions. The shared
// run is detached from any one caller so a superseded caller does not fail
// the others; the caller itself stops waiting as soon as ctx is done.
func (s *Service) fetch(ctx context.Context, ref core.SheetReference) (retrieval.Result, error) {
	ch := s.flights.DoChan(ref.Key(), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.LoadTimeout)
		defer cancel()

		if err := s.limiter.Acquire(runCtx); err != nil {
			return retrieval.Result{}, err
		}
		defer s.limiter.Release()

		return s.loader.Load(runCtx, ref)
	})

	select {
	case <-ctx.Done():
		return retrieval.Result{}, ctx.Err()
	case r := <-ch:
		res, _ := r.Val.(retrieval.Result)
		if r.Err != nil {
			return res, r.Err
		}
		// Each session gets its own copy of the shared dataset.
		if r.Shared {
			res.Dataset = res.Dataset.Clone()
		}
		return res, nil
	}
}

// loadedMessage formats "Loaded N rows[ from saved source][ via LABEL]."
func loadedMessage(rows int, fromSaved bool, source string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Loaded %d rows", rows)
	if fromSaved {
		b.WriteString(" from saved source")
	}
	if source != "" {
		b.WriteString(" via ")
		b.WriteString(source)
	}
	b.WriteString(".")
	return b.String()
}

func (s *Service) record(ctx context.Context, sessionID, raw string, ref core.SheetReference, source string, rows int, loadErr error, start time.Time) {
	rec := store.LoadRecord{
		SessionID:  sessionID,
		Source:     raw,
		SheetID:    ref.SheetID,
		Strategy:   source,
		Rows:       rows,
		DurationMS: s.now().Sub(start).Milliseconds(),
		ClientIP:   core.ClientIPFromContext(ctx),
		UserAgent:  core.UserAgentFromContext(ctx),
	}
	if loadErr != nil {
		rec.Error = loadErr.Error()
	}

	// Recorded even when the request context is already cancelled.
	if _, err := s.store.RecordLoad(context.WithoutCancel(ctx), rec); err != nil {
		logging.FromContext(ctx).Warn("failed to record load", "session_id", sessionID, "error", err)
	}
}

// Reload loads the session's saved source, if any.
func (s *Service) Reload(ctx context.Context, sessionID string) (View, error) {
	saved, err := s.store.LastSource(ctx, sessionID)
	if err != nil {
		return s.Current(sessionID), fmt.Errorf("read saved source: %w", err)
	}
	if saved == "" {
		return s.Current(sessionID), ErrNoSavedSource
	}
	return s.Load(ctx, sessionID, saved, LoadOptions{FromSaved: true})
}

// SavedSource returns the session's saved source string.
func (s *Service) SavedSource(ctx context.Context, sessionID string) (string, error) {
	return s.store.LastSource(ctx, sessionID)
}

// ----------------------------------------------------------------------------
// Reset / View / History
// ----------------------------------------------------------------------------

// Reset forgets the saved source and clears the dataset and filters. A load
// still waiting for the session returns ErrLoadSuperseded; the shared chain
// run behind it is not cancelled.
func (s *Service) Reset(ctx context.Context, sessionID string) (View, error) {
	sess := s.session(sessionID)
	sess.supersede()

	st := sess.replace(func(State) State {
		return emptyState(core.FilterCriteria{}, Feedback{Message: msgReset})
	})

	if err := s.store.ClearSource(ctx, sessionID); err != nil {
		return buildView(st), fmt.Errorf("clear saved source: %w", err)
	}

	logging.FromContext(ctx).Info("session reset", "session_id", sessionID)
	return buildView(st), nil
}

// Filter replaces the session's criteria and returns the resulting view.
func (s *Service) Filter(sessionID string, criteria core.FilterCriteria) View {
	sess := s.session(sessionID)
	st := sess.replace(func(prev State) State {
		prev.Criteria = criteria
		return prev
	})
	return buildView(st)
}

// Current returns the session's view without changing anything.
func (s *Service) Current(sessionID string) View {
	sess := s.session(sessionID)
	v := buildView(sess.Snapshot())
	v.Loading = sess.loading()
	return v
}

// Visible returns the headers and visible rows for export.
func (s *Service) Visible(sessionID string) ([]string, []core.Row, error) {
	v := s.Current(sessionID)
	if !v.Loaded {
		return nil, nil, ErrNoData
	}
	return v.Headers, v.Rows, nil
}

// History returns the session's recent load attempts, newest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]store.LoadRecord, error) {
	return s.store.RecentLoads(ctx, sessionID, s.opts.HistoryLimit)
}
