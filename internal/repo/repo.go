// Package repo provides the local-first repositories. Reads are always served
// synchronously from the persisted store; writes commit locally, enqueue an
// outbox operation, then attempt the remote call opportunistically. A gateway
// failure never escapes a write path: the caller always receives a valid
// record, local or remote-confirmed.
package repo

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pbaranSii/TalentTrack/internal/gateway"
	"github.com/pbaranSii/TalentTrack/internal/localdb"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
)

var (
	errMissingStore   = errors.New("repo: store is required")
	errMissingOutbox  = errors.New("repo: outbox queue is required")
	errMissingGateway = errors.New("repo: gateway client is required")
)

// Config carries the dependencies shared by every repository.
type Config struct {
	Store      *localdb.Store
	Outbox     *outbox.Queue
	Gateway    *gateway.Client
	Clock      func() time.Time
	IDProvider LocalIDProvider
	Logger     *zap.Logger
}

// prepare validates required dependencies and fills in defaults.
func (c Config) prepare() (Config, error) {
	if c.Store == nil {
		return Config{}, errMissingStore
	}
	if c.Outbox == nil {
		return Config{}, errMissingOutbox
	}
	if c.Gateway == nil {
		return Config{}, errMissingGateway
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.IDProvider == nil {
		c.IDProvider = NewLocalIDProvider()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c, nil
}

// Record is any entity value held in a store table.
type Record interface {
	RecordID() string
}

// CreatePayload is the outbox payload for a CREATE operation. LocalID is the
// temporary client-side identifier the record was committed under.
type CreatePayload[T any] struct {
	Input           T      `json:"input"`
	LocalID         string `json:"localId"`
	CreatedByUserID string `json:"createdByUserId,omitempty"`
	Kind            string `json:"kind,omitempty"`
}

// UpdatePayload is the outbox payload for an UPDATE operation.
type UpdatePayload[T any] struct {
	ID              string `json:"id"`
	Patch           T      `json:"patch"`
	CreatedByUserID string `json:"createdByUserId,omitempty"`
}

// Invitation payload kinds.
const (
	InvitationKindExistingPlayer = "EXISTING_PLAYER"
	InvitationKindFreeform       = "FREEFORM"
)

var (
	collatorMu   sync.Mutex
	textCollator = collate.New(language.Polish, collate.IgnoreCase)
)

// compareText orders strings with Polish collation, case-insensitively. The
// collator is not safe for concurrent use, hence the lock.
func compareText(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return textCollator.CompareString(a, b)
}

func nowISO(clock func() time.Time) string {
	return clock().UTC().Format(time.RFC3339Nano)
}

// decodeList unmarshals a table container. Malformed data yields an empty
// list, never an error.
func decodeList[T any](container json.RawMessage, logger *zap.Logger, table localdb.Table) []T {
	var list []T
	if err := json.Unmarshal(container, &list); err != nil {
		logger.Warn("table container is malformed, treating as empty",
			zap.String("table", string(table)), zap.Error(err))
		return nil
	}
	return list
}

// normalize returns a sorted copy so readers always get a stable view.
func normalize[T Record](list []T, less func(a, b T) bool) []T {
	sorted := make([]T, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}

// upsertRecord replaces in place when the id already exists, otherwise
// appends. The result is normalized; calling twice with the same id never
// duplicates.
func upsertRecord[T Record](list []T, item T, less func(a, b T) bool) []T {
	for i := range list {
		if list[i].RecordID() == item.RecordID() {
			next := make([]T, len(list))
			copy(next, list)
			next[i] = item
			return normalize(next, less)
		}
	}
	return normalize(append(append([]T(nil), list...), item), less)
}

// removeRecord drops the record with the given id, if present.
func removeRecord[T Record](list []T, id string) []T {
	kept := make([]T, 0, len(list))
	for _, item := range list {
		if item.RecordID() != id {
			kept = append(kept, item)
		}
	}
	return kept
}

// pendingIDs collects every record id referenced by a queued operation for the
// entity. A record whose id appears here exists only locally: it was never
// confirmed by the server, so merges must preserve it.
func pendingIDs(queue *outbox.Queue, entity outbox.Entity) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, op := range queue.List() {
		if op.Entity != entity {
			continue
		}
		var ref struct {
			LocalID string `json:"localId"`
			ID      string `json:"id"`
		}
		if json.Unmarshal(op.Payload, &ref) != nil {
			continue
		}
		if ref.LocalID != "" {
			ids[ref.LocalID] = struct{}{}
		}
		if ref.ID != "" {
			ids[ref.ID] = struct{}{}
		}
	}
	return ids
}

// mergeSnapshot rebuilds a table from a remote snapshot while preserving
// records the merge must not clobber: unconfirmed local records and, for
// scoped refreshes, records outside the scope. Remote records win over any
// kept record with the same id.
func mergeSnapshot[T Record](current, remote []T, keep func(T) bool, less func(a, b T) bool) []T {
	merged := make([]T, 0, len(current)+len(remote))
	for _, item := range current {
		if keep(item) {
			merged = append(merged, item)
		}
	}
	for _, item := range remote {
		merged = upsertRecord(merged, item, less)
	}
	return normalize(merged, less)
}

// updateList runs a read-modify-write cycle on one table under the store lock.
// The closure receives the decoded list and returns the replacement, which is
// normalized before encoding.
func updateList[T Record](store *localdb.Store, table localdb.Table, logger *zap.Logger,
	less func(a, b T) bool, fn func(list []T) []T) error {
	var encodeErr error
	err := store.UpdateTable(table, func(container json.RawMessage) json.RawMessage {
		list := decodeList[T](container, logger, table)
		next := normalize(fn(list), less)
		encoded, err := json.Marshal(next)
		if err != nil {
			encodeErr = err
			return container
		}
		return encoded
	})
	if err != nil {
		return err
	}
	return encodeErr
}
