package approval

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/eventbus"
)

// commit is the suspended persist-then-publish continuation of one
// operation. Running it completes the original command handler's step 4
// and yields the real operation result.
type commit func() *domain.OperationResult

type pendingOp struct {
	cmd    domain.Command
	run    commit
	heldAt time.Time
}

// Gate applies trust levels to operations and owns the pending queue.
// One instance is shared by all command handlers.
type Gate struct {
	settings Settings
	bus      *eventbus.Bus
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]pendingOp
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// NewGate creates a gate with the given trust settings. The bus receives
// the approval lifecycle events.
func NewGate(settings Settings, bus *eventbus.Bus, opts ...Option) *Gate {
	g := &Gate{
		settings: settings,
		bus:      bus,
		logger:   slog.Default(),
		pending:  make(map[string]pendingOp),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Execute applies the trust level for cmd's category to the suspended
// commit step. Auto runs it immediately; notify runs it and publishes a
// notice; require holds it and returns a pending result. A held commit
// may run long after the originating request has finished, so it must
// not capture a cancellable request context.
func (g *Gate) Execute(cmd domain.Command, run commit) *domain.OperationResult {
	switch g.settings.LevelFor(cmd.Category()) {
	case LevelRequire:
		return g.hold(cmd, run)

	case LevelNotify:
		res := run()
		if res.Success {
			g.bus.Publish(OperationExecuted{
				CommandType: cmd.CommandType(),
				Category:    cmd.Category(),
				At:          time.Now().UTC(),
			})
		}
		return res

	default:
		return run()
	}
}

func (g *Gate) hold(cmd domain.Command, run commit) *domain.OperationResult {
	id := uuid.NewString()

	g.mu.Lock()
	g.pending[id] = pendingOp{cmd: cmd, run: run, heldAt: time.Now().UTC()}
	g.mu.Unlock()

	g.logger.Info("operation held for approval",
		"pending_id", id,
		"command_type", cmd.CommandType(),
		"category", cmd.Category(),
	)
	g.bus.Publish(OperationHeld{
		PendingID:   id,
		CommandType: cmd.CommandType(),
		Category:    cmd.Category(),
		At:          time.Now().UTC(),
	})

	return domain.PendingResult(id)
}

// Approve resumes a pending operation, executing its suspended
// persist-then-publish step and returning the real result.
func (g *Gate) Approve(pendingID string) (*domain.OperationResult, error) {
	g.mu.Lock()
	op, ok := g.pending[pendingID]
	if ok {
		delete(g.pending, pendingID)
	}
	g.mu.Unlock()

	if !ok {
		return nil, domain.ErrPendingNotFound
	}

	res := op.run()
	g.bus.Publish(OperationApproved{
		PendingID:   pendingID,
		CommandType: op.cmd.CommandType(),
		At:          time.Now().UTC(),
	})
	return res, nil
}

// Reject discards a pending operation without executing it.
func (g *Gate) Reject(pendingID string) error {
	g.mu.Lock()
	op, ok := g.pending[pendingID]
	if ok {
		delete(g.pending, pendingID)
	}
	g.mu.Unlock()

	if !ok {
		return domain.ErrPendingNotFound
	}

	g.bus.Publish(OperationRejected{
		PendingID:   pendingID,
		CommandType: op.cmd.CommandType(),
		At:          time.Now().UTC(),
	})
	return nil
}

// PendingInfo describes one held operation for UI listings.
type PendingInfo struct {
	PendingID   string
	CommandType string
	Category    string
	HeldAt      time.Time
}

// Pending lists held operations, oldest first.
func (g *Gate) Pending() []PendingInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]PendingInfo, 0, len(g.pending))
	for id, op := range g.pending {
		out = append(out, PendingInfo{
			PendingID:   id,
			CommandType: op.cmd.CommandType(),
			Category:    op.cmd.Category(),
			HeldAt:      op.heldAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HeldAt.Before(out[j].HeldAt) })
	return out
}
