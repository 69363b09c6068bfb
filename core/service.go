package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrRunInProgress = errors.New("signuplifecycle: a lifecycle run is already in progress")

// BatchResult summarizes one run. AllSucceeded is false if any action could
// not be verified; the scheduler should then retry on its next tick.
type BatchResult struct {
	AllSucceeded bool `json:"all_succeeded"`
	Deleted      int  `json:"deleted"`
	Suspended    int  `json:"suspended"`
	Failed       int  `json:"failed"`
	Skipped      int  `json:"skipped"`
}

// Service runs the lifecycle policy against a user repository.
type Service struct {
	users   UserRepository
	config  ConfigSource
	fields  ProfileFieldStore
	lister  UserLister
	events  EventSink
	metrics *Metrics
	log     *log.Entry
	now     func() time.Time
	running atomic.Bool
}

func NewService(users UserRepository, config ConfigSource) *Service {
	return &Service{
		users:  users,
		config: config,
		log:    log.WithField("component", "signuplifecycle"),
		now:    time.Now,
	}
}

// WithProfileFields wires the store override dates are read from.
func (s *Service) WithProfileFields(f ProfileFieldStore) *Service { s.fields = f; return s }

// WithUserLister wires the paged listing used by the admin user list.
func (s *Service) WithUserLister(l UserLister) *Service { s.lister = l; return s }

// WithEventSink wires the audit sink (e.g., Redis stream).
func (s *Service) WithEventSink(e EventSink) *Service { s.events = e; return s }

func (s *Service) WithMetrics(m *Metrics) *Service { s.metrics = m; return s }

func (s *Service) WithLogger(l *log.Entry) *Service {
	if l != nil {
		s.log = l
	}
	return s
}

// WithClock replaces time.Now, mainly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// EffectiveConfig loads the policy the next run would use.
func (s *Service) EffectiveConfig(ctx context.Context) (Config, error) {
	if s.config == nil {
		return Config{}, fmt.Errorf("%w: no config source", ErrInvalidConfig)
	}
	return s.config.LoadConfig(ctx)
}

// ProcessLifecycle runs both phases once. The returned error is non-nil only
// when nothing could be attempted (config unavailable, run already active) or
// the context was cancelled; per-user failures are reported via BatchResult.
func (s *Service) ProcessLifecycle(ctx context.Context) (BatchResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return BatchResult{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	cfg, err := s.EffectiveConfig(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("load lifecycle config: %w", err)
	}

	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)
	started := s.now()
	r := &batchRun{
		svc:    s,
		cfg:    cfg,
		now:    started,
		log:    s.log.WithField("run_id", runID),
		result: BatchResult{AllSucceeded: true},

		skipped:      map[int64]struct{}{},
		lookupFailed: map[int64]struct{}{},
	}
	r.resolver = NewOverrideResolver(cfg, s.fields, NewRunCache())

	if cfg.SuspensionEnabled && cfg.SuspensionPeriodDays > cfg.DeletionPeriodDays {
		r.log.WithFields(log.Fields{
			"suspension_period_days": cfg.SuspensionPeriodDays,
			"deletion_period_days":   cfg.DeletionPeriodDays,
		}).Warn("suspension period is longer than deletion period")
	}
	if cfg.OverridesEnabled && !cfg.OverridesEnabledAndConfigured() {
		r.log.Warn("user overrides are enabled but no override field is selected; ignoring overrides")
	}

	if len(cfg.CoveredAuth) == 0 {
		r.log.Info("no covered auth methods configured; nothing to do")
	} else {
		r.runPhases(ctx)
	}

	s.metrics.observeRun(s.now().Sub(started), r.result.AllSucceeded)
	r.log.WithFields(log.Fields{
		"deleted":       r.result.Deleted,
		"suspended":     r.result.Suspended,
		"failed":        r.result.Failed,
		"skipped":       r.result.Skipped,
		"all_succeeded": r.result.AllSucceeded,
	}).Info("lifecycle run finished")

	if err := ctx.Err(); err != nil {
		return r.result, err
	}
	return r.result, nil
}

type batchRun struct {
	svc      *Service
	cfg      Config
	now      time.Time
	resolver *OverrideResolver
	log      *log.Entry
	result   BatchResult

	// Users already counted as skipped or failed; phases may select them again.
	skipped      map[int64]struct{}
	lookupFailed map[int64]struct{}
}

// runPhases applies override-driven actions first so the standard phases can
// skip anyone carrying an override.
func (r *batchRun) runPhases(ctx context.Context) {
	loc := r.cfg.location()

	if r.resolver.Configured() {
		r.phase(ctx, "overrides", CandidateFilter{AuthMethods: r.cfg.CoveredAuth}, func(v Verdict) bool {
			return v.Action != ActionNone && v.Reason == ReasonOverridden
		})
	}

	deletionCutoff := ReferenceDay(r.now, loc, r.cfg.DeletionPeriodDays)
	deletion := CandidateFilter{AuthMethods: r.cfg.CoveredAuth, CreatedBefore: &deletionCutoff}
	if r.cfg.SuspensionEnabled {
		deletion.Suspended = BoolPtr(true)
	}
	r.phase(ctx, "standard_deletion", deletion, func(v Verdict) bool {
		return v == Verdict{Action: ActionDelete, Reason: ReasonStandardPeriod}
	})

	if r.cfg.SuspensionEnabled {
		suspensionCutoff := ReferenceDay(r.now, loc, r.cfg.SuspensionPeriodDays)
		suspension := CandidateFilter{
			AuthMethods:   r.cfg.CoveredAuth,
			Suspended:     BoolPtr(false),
			CreatedBefore: &suspensionCutoff,
		}
		r.phase(ctx, "standard_suspension", suspension, func(v Verdict) bool {
			return v == Verdict{Action: ActionSuspend, Reason: ReasonStandardPeriod}
		})
	}
}

func (r *batchRun) phase(ctx context.Context, name string, f CandidateFilter, wants func(Verdict) bool) {
	if ctx.Err() != nil {
		r.result.AllSucceeded = false
		return
	}
	plog := r.log.WithField("phase", name)
	cur, err := r.svc.users.QueryCandidates(ctx, f)
	if err != nil {
		plog.WithError(err).Error("failed to query lifecycle candidates")
		r.result.AllSucceeded = false
		return
	}
	defer cur.Close()

	for cur.Next() {
		if ctx.Err() != nil {
			plog.WithError(ctx.Err()).Warn("lifecycle run interrupted")
			r.result.AllSucceeded = false
			return
		}
		u := cur.User()
		if u.Protected() {
			if _, seen := r.skipped[u.ID]; !seen {
				r.skipped[u.ID] = struct{}{}
				r.result.Skipped++
			}
			continue
		}
		if _, failed := r.lookupFailed[u.ID]; failed {
			continue
		}
		o, err := r.resolver.Resolve(ctx, u.ID)
		if err != nil {
			plog.WithError(err).WithField("user_id", u.ID).Error("failed to resolve user overrides; skipping user")
			r.lookupFailed[u.ID] = struct{}{}
			r.result.Failed++
			r.result.AllSucceeded = false
			continue
		}
		v := Decide(u, o, r.cfg, r.resolver.Configured(), r.now)
		if !wants(v) {
			continue
		}
		r.apply(ctx, plog, u, v)
	}
	if err := cur.Err(); err != nil {
		plog.WithError(err).Error("candidate cursor failed")
		r.result.AllSucceeded = false
	}
}

func (r *batchRun) apply(ctx context.Context, plog *log.Entry, u UserAccount, v Verdict) {
	ulog := plog.WithFields(log.Fields{
		"user_id": u.ID,
		"user":    fullName(u),
		"action":  v.Action.String(),
		"reason":  v.Reason.String(),
	})

	var (
		ok     bool
		err    error
		kind   LifecycleEventKind
		period int
	)
	switch v.Action {
	case ActionDelete:
		ulog.Info("deleting user")
		kind, period = EventUserDeleted, r.cfg.DeletionPeriodDays
		ok, err = r.svc.users.DeleteUser(WithSessionRevokeReason(ctx, SessionRevokeReasonLifecycleDeleted), u)
	case ActionSuspend:
		ulog.Info("suspending user")
		kind, period = EventUserSuspended, r.cfg.SuspensionPeriodDays
		if err = r.svc.users.SuspendUser(WithSessionRevokeReason(ctx, SessionRevokeReasonLifecycleSuspended), u); err == nil {
			ok, err = r.svc.users.ReadSuspended(ctx, u.ID)
		}
	default:
		return
	}

	r.svc.metrics.observeAction(v, ok && err == nil)
	if err != nil || !ok {
		entry := ulog
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("lifecycle action failed; will retry next run")
		r.result.Failed++
		r.result.AllSucceeded = false
		return
	}
	ulog.Info("lifecycle action applied")
	if v.Action == ActionDelete {
		r.result.Deleted++
	} else {
		r.result.Suspended++
	}

	if r.svc.events != nil {
		e := newLifecycleEvent(kind, u.ID, v, period, r.svc.now())
		if err := r.svc.events.Emit(ctx, e); err != nil {
			ulog.WithError(err).Warn("failed to emit lifecycle event")
		}
	}
}

func fullName(u UserAccount) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
