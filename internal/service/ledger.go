// Package service wires the escrow engine to the delivery infrastructure:
// journal restore at boot, snapshot caching, queue publication behind a
// circuit breaker, websocket broadcast, and metrics.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/daskhq/dask/internal/adapter/otel"
	"github.com/daskhq/dask/internal/domain/claim"
	"github.com/daskhq/dask/internal/domain/event"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/domain/task"
	"github.com/daskhq/dask/internal/ledger"
	"github.com/daskhq/dask/internal/port/broadcast"
	"github.com/daskhq/dask/internal/port/cache"
	"github.com/daskhq/dask/internal/port/journal"
	"github.com/daskhq/dask/internal/port/messagequeue"
	"github.com/daskhq/dask/internal/resilience"
)

const defaultTaskTTL = 30 * time.Second

// LedgerConfig collects the ledger service's dependencies. Engine and
// Journal are required; the rest degrade gracefully when nil.
type LedgerConfig struct {
	Engine  *ledger.Ledger
	Journal journal.Store
	Queue   messagequeue.Queue
	Hub     broadcast.Broadcaster
	Cache   cache.Cache
	Breaker *resilience.Breaker
	Metrics *otel.Metrics
	TaskTTL time.Duration
}

// LedgerService exposes the escrow operations with their side effects: every
// committed transition is published to the queue and broadcast to feed
// clients, and task snapshots are served through the cache.
type LedgerService struct {
	engine  *ledger.Ledger
	journal journal.Store
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	cache   cache.Cache
	breaker *resilience.Breaker
	metrics *otel.Metrics
	taskTTL time.Duration
	fills   singleflight.Group
}

// NewLedgerService creates a LedgerService from cfg.
func NewLedgerService(cfg LedgerConfig) (*LedgerService, error) {
	if cfg.Engine == nil {
		return nil, errors.New("service: engine is required")
	}
	if cfg.Journal == nil {
		return nil, errors.New("service: journal is required")
	}
	ttl := cfg.TaskTTL
	if ttl <= 0 {
		ttl = defaultTaskTTL
	}
	return &LedgerService{
		engine:  cfg.Engine,
		journal: cfg.Journal,
		queue:   cfg.Queue,
		hub:     cfg.Hub,
		cache:   cfg.Cache,
		breaker: cfg.Breaker,
		metrics: cfg.Metrics,
		taskTTL: ttl,
	}, nil
}

// Restore replays the persisted journal into the engine. Called once at
// boot, before the HTTP surface comes up.
func (s *LedgerService) Restore(ctx context.Context) error {
	recs, err := s.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	if err := s.engine.Replay(recs); err != nil {
		return err
	}
	slog.Info("ledger restored", "ops", len(recs), "tasks", len(s.engine.TaskIDs()))
	return nil
}

// CreateTask escrows the caller's reward and posts a new task.
func (s *LedgerService) CreateTask(ctx context.Context, caller identity.Address, req task.CreateRequest) (*task.Task, error) {
	t, ev, err := s.engine.CreateTask(ctx, caller, req)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, ev)
	if s.metrics != nil {
		s.metrics.TasksCreated.Add(ctx, 1)
	}
	return t, nil
}

// AssignTask hands a task to an assignee.
func (s *LedgerService) AssignTask(ctx context.Context, caller identity.Address, taskID int64, assignee identity.Address) (*task.Task, error) {
	t, ev, err := s.engine.AssignTask(ctx, caller, taskID, assignee)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, ev)
	return t, nil
}

// CancelTask cancels a task that was never assigned.
func (s *LedgerService) CancelTask(ctx context.Context, caller identity.Address, taskID int64) (*task.Task, error) {
	t, ev, err := s.engine.CancelTask(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, ev)
	if s.metrics != nil {
		s.metrics.TasksCancelled.Add(ctx, 1)
	}
	return t, nil
}

// CompleteTask records the caller's completion confirmation. The task
// transitions, and an event goes out, only once both members have confirmed.
func (s *LedgerService) CompleteTask(ctx context.Context, caller identity.Address, taskID int64) (*task.Task, error) {
	t, ev, err := s.engine.CompleteTask(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidateTask(ctx, taskID)
	if ev != nil {
		s.dispatch(ctx, ev)
		if s.metrics != nil {
			s.metrics.TasksCompleted.Add(ctx, 1)
		}
	}
	return t, nil
}

// TakeReward pays the completed task's reward, minus fee, to the assignee.
func (s *LedgerService) TakeReward(ctx context.Context, caller identity.Address, taskID int64) (*task.Task, error) {
	t, err := s.engine.TakeReward(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidateTask(ctx, taskID)
	if s.metrics != nil {
		s.metrics.Payouts.Add(ctx, 1)
	}
	return t, nil
}

// RecallReward returns a cancelled task's escrow to its owner, fee-free.
func (s *LedgerService) RecallReward(ctx context.Context, caller identity.Address, taskID int64) (*task.Task, error) {
	t, err := s.engine.RecallReward(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidateTask(ctx, taskID)
	if s.metrics != nil {
		s.metrics.Payouts.Add(ctx, 1)
	}
	return t, nil
}

// Refund credits a task member outside the claim flow. Administrator only.
func (s *LedgerService) Refund(ctx context.Context, caller identity.Address, taskID int64, member identity.Address, amount int64) (*task.Task, error) {
	return s.engine.Refund(ctx, caller, taskID, member, amount)
}

// RaiseClaim opens a claim by a task member against the task's reward.
func (s *LedgerService) RaiseClaim(ctx context.Context, caller identity.Address, taskID, amount int64) (*claim.Claim, error) {
	c, err := s.engine.RaiseClaim(ctx, caller, taskID, amount)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ClaimsRaised.Add(ctx, 1)
	}
	return c, nil
}

// SettleClaim resolves an open claim. Administrator only.
func (s *LedgerService) SettleClaim(ctx context.Context, caller identity.Address, taskID int64, claimant identity.Address, claimID int64, res claim.Resolution) (*claim.Claim, error) {
	c, err := s.engine.SettleClaim(ctx, caller, taskID, claimant, claimID, res)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ClaimsSettled.Add(ctx, 1)
	}
	return c, nil
}

// TransferOwnership hands the administrator role over.
func (s *LedgerService) TransferOwnership(ctx context.Context, caller, newAdmin identity.Address) error {
	return s.engine.TransferOwnership(ctx, caller, newAdmin)
}

// Pause halts all mutating operations.
func (s *LedgerService) Pause(ctx context.Context, caller identity.Address) error {
	return s.engine.Pause(ctx, caller)
}

// Unpause resumes mutating operations.
func (s *LedgerService) Unpause(ctx context.Context, caller identity.Address) error {
	return s.engine.Unpause(ctx, caller)
}

// UpdateFees replaces the payout fee rate.
func (s *LedgerService) UpdateFees(ctx context.Context, caller identity.Address, feePercent, feeBase int64) error {
	return s.engine.UpdateFees(ctx, caller, feePercent, feeBase)
}

// TakeFees withdraws accrued protocol fees to the administrator's balance.
func (s *LedgerService) TakeFees(ctx context.Context, caller identity.Address, amount int64) error {
	return s.engine.TakeFees(ctx, caller, amount)
}

// Deposit credits an account's balance. Administrator only.
func (s *LedgerService) Deposit(ctx context.Context, caller, account identity.Address, amount int64) error {
	return s.engine.Deposit(ctx, caller, account, amount)
}

// GetTask returns a task snapshot, served from the cache when warm.
// Concurrent misses for the same task collapse into a single fill.
func (s *LedgerService) GetTask(ctx context.Context, taskID int64) (*task.Task, error) {
	key := taskKey(taskID)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var t task.Task
			if err := json.Unmarshal(data, &t); err == nil {
				return &t, nil
			}
			// A snapshot that no longer decodes is dropped, not served.
			_ = s.cache.Delete(ctx, key)
		}
	}

	v, err, _ := s.fills.Do(key, func() (any, error) {
		t, err := s.engine.Task(taskID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if data, err := json.Marshal(t); err == nil {
				_ = s.cache.Set(ctx, key, data, s.taskTTL)
			}
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*task.Task), nil
}

// GetTaskByRef returns the first task posted with the given description ref.
func (s *LedgerService) GetTaskByRef(_ context.Context, ref string) (*task.Task, error) {
	return s.engine.TaskByRef(ref)
}

// ListTasks returns every task in creation order.
func (s *LedgerService) ListTasks(_ context.Context) ([]task.Task, error) {
	ids := s.engine.TaskIDs()
	out := make([]task.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.engine.Task(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

// TasksByMember returns the tasks the address owns or is assigned to.
func (s *LedgerService) TasksByMember(_ context.Context, addr identity.Address) ([]task.Task, error) {
	return s.engine.TasksByMember(addr), nil
}

// GetClaim returns a claim by ID.
func (s *LedgerService) GetClaim(_ context.Context, claimID int64) (*claim.Claim, error) {
	return s.engine.Claim(claimID)
}

// TaskClaims returns a claimant's claims against a task, in raise order.
func (s *LedgerService) TaskClaims(_ context.Context, taskID int64, claimant identity.Address) ([]claim.Claim, error) {
	if _, err := s.engine.Task(taskID); err != nil {
		return nil, err
	}
	ids := s.engine.TaskClaims(taskID, claimant)
	out := make([]claim.Claim, 0, len(ids))
	for _, id := range ids {
		c, err := s.engine.Claim(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// Balance returns an account's spendable balance.
func (s *LedgerService) Balance(_ context.Context, addr identity.Address) (int64, error) {
	return s.engine.Balance(addr), nil
}

// FeeInfo reports the current fee rate and the protocol fees accrued so far.
type FeeInfo struct {
	FeePercent  int64 `json:"fee_percent"`
	FeeBase     int64 `json:"fee_base"`
	AccruedFees int64 `json:"accrued_fees"`
}

// Admin returns the current administrator address.
func (s *LedgerService) Admin() identity.Address {
	return s.engine.Admin()
}

// Fees returns the current fee configuration.
func (s *LedgerService) Fees(_ context.Context) (*FeeInfo, error) {
	percent, base := s.engine.FeeRate()
	return &FeeInfo{FeePercent: percent, FeeBase: base, AccruedFees: s.engine.AccruedFees()}, nil
}

// Status is the operational snapshot served on the status endpoint.
type Status struct {
	Admin          identity.Address `json:"admin"`
	Paused         bool             `json:"paused"`
	Seq            uint64           `json:"seq"`
	Tasks          int              `json:"tasks"`
	QueueConnected bool             `json:"queue_connected"`
}

// GetStatus returns the ledger's operational snapshot.
func (s *LedgerService) GetStatus(_ context.Context) (*Status, error) {
	st := &Status{
		Admin:  s.engine.Admin(),
		Paused: s.engine.Paused(),
		Seq:    s.engine.Seq(),
		Tasks:  len(s.engine.TaskIDs()),
	}
	if s.queue != nil {
		st.QueueConnected = s.queue.IsConnected()
	}
	return st, nil
}

// dispatch publishes a committed transition to the queue and the feed. The
// ledger state is already durable at this point, so delivery failures are
// logged and dropped rather than surfaced to the caller.
func (s *LedgerService) dispatch(ctx context.Context, ev *event.TaskEvent) {
	if ev == nil {
		return
	}
	ev.ID = uuid.NewString()
	s.invalidateTask(ctx, ev.Task.ID)

	if s.queue != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Error("marshal task event", "event_id", ev.ID, "error", err)
			return
		}
		subject := messagequeue.SubjectFor(ev.Kind)
		publish := func() error { return s.queue.Publish(ctx, subject, data) }
		if s.breaker != nil {
			err = s.breaker.Do(publish)
		} else {
			err = publish()
		}
		if err != nil {
			slog.Error("publish task event", "subject", subject, "event_id", ev.ID, "error", err)
		}
	}

	if s.hub != nil {
		s.hub.BroadcastTaskEvent(ctx, ev)
	}
}

func (s *LedgerService) invalidateTask(ctx context.Context, taskID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, taskKey(taskID)); err != nil {
		slog.Warn("invalidate task cache", "task_id", taskID, "error", err)
	}
}

func taskKey(id int64) string {
	return fmt.Sprintf("task:%d", id)
}
