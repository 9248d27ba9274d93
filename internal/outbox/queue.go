// Package outbox implements the durable write-ahead queue of pending remote
// operations. The queue shares the slot persistence medium with the entity
// store, so enqueued operations survive process restarts; ordering is FIFO by
// enqueue time and replay only happens through an explicit Flush.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/storage"
)

const outboxSlotKey = "talenttrack-outbox-v1"

var errMissingSlots = errors.New("outbox: slot store is required")

// Entity names the table an operation targets.
type Entity string

const (
	EntityPlayers      Entity = "players"
	EntityMatches      Entity = "matches"
	EntityObservations Entity = "observations"
	EntityInvitations  Entity = "invitations"
	EntityClubs        Entity = "clubs"
	EntityTeams        Entity = "teams"
	EntityPersons      Entity = "persons"
)

// OperationType enumerates the intended remote write kinds.
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
)

// Operation is one queued remote write. The operation id is independent of
// any entity id carried in the payload.
type Operation struct {
	ID        string          `json:"id"`
	Entity    Entity          `json:"entity"`
	Op        OperationType   `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
	LastError string          `json:"lastError,omitempty"`
}

// FlushResult aggregates one flush pass.
type FlushResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// IDProvider issues operation identifiers.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// QueueConfig configures a Queue.
type QueueConfig struct {
	Slots      storage.SlotStore
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Queue is the durable ordered log of pending write operations.
type Queue struct {
	mu     sync.Mutex
	slots  storage.SlotStore
	clock  func() time.Time
	ids    IDProvider
	logger *zap.Logger
}

// NewQueue constructs a Queue with the provided configuration.
func NewQueue(cfg QueueConfig) (*Queue, error) {
	if cfg.Slots == nil {
		return nil, errMissingSlots
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{slots: cfg.Slots, clock: clock, ids: ids, logger: logger}, nil
}

// readOps loads the persisted operations, dropping anything malformed.
func (q *Queue) readOps() []Operation {
	raw, ok, err := q.slots.Get(outboxSlotKey)
	if err != nil {
		q.logger.Warn("outbox read failed, treating as empty", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var parsed []Operation
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		q.logger.Warn("outbox is malformed, treating as empty", zap.Error(err))
		return nil
	}

	ops := parsed[:0]
	for _, op := range parsed {
		if op.ID == "" || op.Entity == "" || op.Op == "" {
			continue
		}
		ops = append(ops, op)
	}
	return ops
}

func (q *Queue) writeOps(ops []Operation) error {
	if ops == nil {
		ops = []Operation{}
	}
	encoded, err := json.Marshal(ops)
	if err != nil {
		return err
	}
	return q.slots.Set(outboxSlotKey, string(encoded))
}

// Enqueue appends a new pending operation and persists it immediately.
func (q *Queue) Enqueue(entity Entity, op OperationType, payload any) (Operation, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Operation{}, err
	}
	id, err := q.ids.NewID()
	if err != nil {
		return Operation{}, err
	}

	next := Operation{
		ID:        id,
		Entity:    entity,
		Op:        op,
		Payload:   encoded,
		CreatedAt: q.clock().UTC().Format(time.RFC3339Nano),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	ops := append(q.readOps(), next)
	if err := q.writeOps(ops); err != nil {
		return Operation{}, err
	}
	return next, nil
}

// List returns all pending operations in insertion order.
func (q *Queue) List() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readOps()
}

// RemoveByID deletes one operation. Removing an unknown id is a no-op.
func (q *Queue) RemoveByID(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ops := q.readOps()
	kept := ops[:0]
	for _, op := range ops {
		if op.ID != id {
			kept = append(kept, op)
		}
	}
	return q.writeOps(kept)
}

// MarkError attaches or overwrites the last error on one operation without
// removing it.
func (q *Queue) MarkError(id, message string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ops := q.readOps()
	for i := range ops {
		if ops[i].ID == id {
			ops[i].LastError = message
		}
	}
	return q.writeOps(ops)
}

// Flush invokes handler once per currently queued operation, removing each on
// success and recording the error on failure. Operations enqueued while the
// flush is running are not processed in the same pass, and one failing
// operation never blocks the rest.
func (q *Queue) Flush(ctx context.Context, handler func(ctx context.Context, op Operation) error) FlushResult {
	snapshot := q.List()

	var result FlushResult
	for _, op := range snapshot {
		result.Attempted++
		if err := handler(ctx, op); err != nil {
			result.Failed++
			if markErr := q.MarkError(op.ID, err.Error()); markErr != nil {
				q.logger.Warn("outbox error mark failed",
					zap.String("operation_id", op.ID), zap.Error(markErr))
			}
			continue
		}
		result.Succeeded++
		if err := q.RemoveByID(op.ID); err != nil {
			q.logger.Warn("outbox remove failed",
				zap.String("operation_id", op.ID), zap.Error(err))
		}
	}
	return result
}
