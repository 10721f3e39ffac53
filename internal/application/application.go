// Package application runs one cleaning day: resolve due and overdue rooms,
// clean them phase by phase and persist the progress.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/behavior"
	"github.com/alexanderramin/custodian/internal/cleaning"
	"github.com/alexanderramin/custodian/internal/detection"
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/gateway"
	"github.com/alexanderramin/custodian/internal/schedule"
	"github.com/alexanderramin/custodian/internal/store"
	"github.com/alexanderramin/custodian/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phase names, in run order.
const (
	PhaseDryDue     = "dry_due"
	PhaseWetDue     = "wet_due"
	PhaseDryOverdue = "dry_overdue"
	PhaseWetOverdue = "wet_overdue"
)

type Deps struct {
	Store    *store.Store
	Gateway  *gateway.Caller
	Feed     detection.Feed
	Observer telemetry.Observer
	Logger   *zap.Logger
	Cleaning cleaning.Config
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type RunRequest struct {
	// Now overrides the run date.
	Now *time.Time
}

// RunReport summarizes a run, including a cancelled or failed one.
type RunReport struct {
	RunID      string
	Now        time.Time
	Restored   bool
	Resolution *schedule.Resolution
	Visits     []cleaning.Visit
	State      behavior.State
}

// Count returns the number of visits with status s.
func (r *RunReport) Count(s domain.LogStatus) int {
	n := 0
	for _, v := range r.Visits {
		if v.Status == s {
			n++
		}
	}
	return n
}

type Service struct {
	deps   Deps
	signal *behavior.Signal
	logger *zap.Logger
}

func New(deps Deps) *Service {
	if deps.Observer == nil {
		deps.Observer = telemetry.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Feed == nil {
		deps.Feed = detection.NewMemoryFeed()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{deps: deps, signal: behavior.NewSignal(), logger: deps.Logger}
}

// Signal is the supervisor interrupt shared by the run and every behavior
// below it.
func (s *Service) Signal() *behavior.Signal { return s.signal }

// Resolve loads the store and resolves the rooms due at now without running
// anything.
func (s *Service) Resolve(ctx context.Context, now time.Time) (*schedule.Resolution, error) {
	if err := s.deps.Store.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading store: %w", err)
	}
	r, err := schedule.NewResolver(s.deps.Store.Assignments(), s.deps.Store.Settings(), s.logger)
	if err != nil {
		return nil, err
	}
	return r.Resolve(now)
}

// Run executes the day's work. The returned error wraps
// behavior.ErrCancelled when the run was cancelled; fatal errors wrap
// domain.ErrConfiguration or domain.ErrInvariantViolation.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	started := s.deps.Clock()
	now := started
	if req.Now != nil {
		now = *req.Now
	}
	run := &runTask{
		svc:     s,
		report:  &RunReport{RunID: uuid.New().String(), Now: now},
		started: started,
	}
	run.logger = s.logger.With(zap.String("run_id", run.report.RunID))

	runner := behavior.NewRunner(run, s.signal, run.logger)
	err := runner.Execute(ctx)
	run.report.State = runner.State()

	switch {
	case err == nil:
		run.emit(ctx, telemetry.Event{Type: telemetry.EventRunFinished, Status: "finished"})
	case errors.Is(err, behavior.ErrCancelled):
		run.emit(ctx, telemetry.Event{Type: telemetry.EventRunCancelled, Status: "cancelled"})
	default:
		run.emit(ctx, telemetry.Event{Type: telemetry.EventRunFinished, Status: "failed", Detail: err.Error()})
	}
	return run.report, err
}

// runTask is the application behavior.
type runTask struct {
	svc     *Service
	report  *RunReport
	logger  *zap.Logger
	work    *schedule.WorkSet
	started time.Time
}

func (r *runTask) Name() string { return "application" }

// clock is the run's time: the run date plus the time elapsed since the run
// started. Checkouts use it so stamps land on the date the run resolved.
func (r *runTask) clock() time.Time {
	return r.report.Now.Add(r.svc.deps.Clock().Sub(r.started))
}

func (r *runTask) emit(ctx context.Context, e telemetry.Event) {
	e.RunID = r.report.RunID
	if e.At.IsZero() {
		e.At = r.svc.deps.Clock()
	}
	r.svc.deps.Observer.OnEvent(ctx, e)
}

func (r *runTask) Run(ctx context.Context, ctl *behavior.Control) error {
	st := r.svc.deps.Store
	now := r.report.Now

	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("loading store: %w", err)
	}
	r.report.Restored = st.Restored()
	r.emit(ctx, telemetry.Event{Type: telemetry.EventRunStarted, Detail: domain.SlotOf(now).String()})
	if r.report.Restored {
		r.logger.Info("resuming from checkpoint")
	}
	if err := ctl.Checkpoint(ctx); err != nil {
		return err
	}

	resolver, err := schedule.NewResolver(st.Assignments(), st.Settings(), r.logger)
	if err != nil {
		return err
	}
	res, err := resolver.Resolve(now)
	if err != nil {
		return err
	}
	r.report.Resolution = res

	r.work = schedule.NewWorkSet(res, st)
	plan, err := r.work.Plan(now)
	if err != nil {
		return fmt.Errorf("planning run: %w", err)
	}
	r.logger.Info("run planned",
		zap.Stringer("slot", res.Slot),
		zap.Int("dry_due", len(plan.DryDue)),
		zap.Int("wet_due", len(plan.WetDue)),
		zap.Int("dry_overdue", len(plan.DryOverdue)),
		zap.Int("wet_overdue", len(plan.WetOverdue)),
	)

	d := r.svc.deps
	dry := cleaning.NewDryCleaner(d.Gateway, d.Feed, st.RobotProperties(), st.MapData(), d.Cleaning, r.logger)
	wet := cleaning.NewWetCleaner(d.Gateway, st.RobotProperties(), st.MapData(), d.Cleaning, r.logger)

	phases := []struct {
		name    string
		cleaner *cleaning.Cleaner
		jobs    []schedule.Job
	}{
		{PhaseDryDue, dry, plan.DryDue},
		{PhaseWetDue, wet, plan.WetDue},
		{PhaseDryOverdue, dry, plan.DryOverdue},
		{PhaseWetOverdue, wet, plan.WetOverdue},
	}
	for _, p := range phases {
		if err := ctl.Checkpoint(ctx); err != nil {
			return err
		}
		if err := r.phase(ctx, ctl, p.name, p.cleaner, p.jobs); err != nil {
			return err
		}
	}

	if err := ctl.Checkpoint(ctx); err != nil {
		return err
	}
	if err := st.Commit(ctx); err != nil {
		return err
	}
	r.logger.Info("run complete",
		zap.Int("completed", r.report.Count(domain.LogCompleted)),
		zap.Int("skipped", r.report.Count(domain.LogSkipped)),
		zap.Int("failed", r.report.Count(domain.LogFailed)),
	)
	return nil
}

func (r *runTask) phase(ctx context.Context, ctl *behavior.Control, name string, cleaner *cleaning.Cleaner, jobs []schedule.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	r.emit(ctx, telemetry.Event{Type: telemetry.EventPhaseStarted, Phase: name})
	if err := cleaner.PrepareTool(ctx); err != nil {
		if ctx.Err() != nil {
			return ctl.Checkpoint(ctx)
		}
		if domain.IsFatal(err) {
			return fmt.Errorf("%s: preparing tool: %w", name, err)
		}
		// Without the tool none of the phase's rooms can be cleaned; later
		// phases still run.
		r.logger.Warn("tool change failed, skipping phase",
			zap.String("phase", name), zap.String("tool", cleaner.Tool()), zap.Error(err))
		for _, job := range jobs {
			visitErr := fmt.Errorf("changing tool to %s: %w", cleaner.Tool(), err)
			if err := r.record(ctx, name, job, cleaner.Abandon(job, visitErr), visitErr); err != nil {
				return err
			}
		}
		return nil
	}

	for _, job := range jobs {
		if err := ctl.Checkpoint(ctx); err != nil {
			return err
		}
		if err := r.visit(ctx, ctl, name, cleaner, job); err != nil {
			return err
		}
	}
	return nil
}

// visit cleans one room and records the outcome. Only cancellation and
// fatal errors are returned; other failures are logged and the run goes on.
func (r *runTask) visit(ctx context.Context, ctl *behavior.Control, phase string, cleaner *cleaning.Cleaner, job schedule.Job) error {
	st := r.svc.deps.Store
	room, err := st.Room(job.RoomID)
	if err != nil {
		return err
	}

	r.emit(ctx, telemetry.Event{Type: telemetry.EventRoomStarted, Phase: phase, RoomID: job.RoomID})
	visit, visitErr := cleaner.Visit(ctx, ctl.Signal(), room, job)
	return r.record(ctx, phase, job, visit, visitErr)
}

// record stores the outcome of one room and checks the room out when the
// visit succeeded.
func (r *runTask) record(ctx context.Context, phase string, job schedule.Job, visit cleaning.Visit, visitErr error) error {
	st := r.svc.deps.Store
	r.report.Visits = append(r.report.Visits, visit)
	r.emit(ctx, telemetry.Event{
		Type:     telemetry.EventRoomFinished,
		Phase:    phase,
		RoomID:   job.RoomID,
		Status:   visit.Status.String(),
		Detail:   visit.Reason,
		Duration: visit.Duration,
	})

	if visitErr == nil {
		if err := r.work.CheckoutJob(job, r.clock()); err != nil {
			return fmt.Errorf("checking out room %d: %w", job.RoomID, err)
		}
	}

	// Log entries use a context that survives cancellation so the cancelled
	// visit is still recorded.
	if err := st.AppendLog(context.WithoutCancel(ctx), logEntry(visit)); err != nil {
		return err
	}

	switch {
	case visitErr == nil:
		if err := st.Checkpoint(ctx); err != nil {
			return err
		}
		return nil
	case errors.Is(visitErr, behavior.ErrCancelled), domain.IsFatal(visitErr):
		return visitErr
	default:
		r.logger.Warn("room failed", zap.Int("room_id", job.RoomID), zap.String("phase", phase), zap.Error(visitErr))
		return nil
	}
}

func logEntry(v cleaning.Visit) *domain.LogEntry {
	e := &domain.LogEntry{
		RoomID:             v.RoomID,
		Status:             v.Status,
		Tasks:              v.Tasks,
		FoundDirtspots:     v.FoundDirtspots,
		FoundTrashcans:     v.FoundTrashcans,
		CleanedSurfaceArea: v.CleanedSurfaceArea,
		Reason:             v.Reason,
	}
	if e.Tasks == nil {
		e.Tasks = []domain.TaskType{}
	}
	return e
}

// PrePause saves a checkpoint so progress survives a shutdown while paused.
func (r *runTask) PrePause(ctx context.Context) {
	r.emit(ctx, telemetry.Event{Type: telemetry.EventRunPaused})
	r.checkpoint(ctx)
}

func (r *runTask) PostPause(ctx context.Context) {
	r.emit(ctx, telemetry.Event{Type: telemetry.EventRunResumed})
}

// OnCancel saves a checkpoint; the next run resumes from it.
func (r *runTask) OnCancel(ctx context.Context) {
	r.checkpoint(ctx)
}

func (r *runTask) checkpoint(ctx context.Context) {
	if _, err := r.svc.deps.Store.Snapshot(); err != nil {
		return
	}
	if err := r.svc.deps.Store.Checkpoint(ctx); err != nil {
		r.logger.Error("saving checkpoint failed", zap.Error(err))
		return
	}
	r.emit(ctx, telemetry.Event{Type: telemetry.EventCheckpointed})
}
