// Package localdb implements the persisted client-side document store. The
// whole document is serialized into a single storage slot; every table write
// rewrites the document. Malformed or out-of-version persisted data is
// replaced with a fresh empty document rather than surfaced as an error, so a
// corrupted local store silently becomes an empty one.
package localdb

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/storage"
)

const (
	dbSlotKey       = "talenttrack-db"
	documentVersion = 1
)

var errMissingSlots = errors.New("localdb: slot store is required")

// Table names one semantic container inside the document.
type Table string

const (
	TablePlayers      Table = "players"
	TableMatches      Table = "matches"
	TableObservations Table = "observations"
	TableInvitations  Table = "invitations"
	TableDictionaries Table = "dictionaries"
	TableClubs        Table = "clubs"
	TableTeams        Table = "teams"
	TablePersons      Table = "persons"
	TableMeta         Table = "meta"
)

var knownTables = []Table{
	TablePlayers,
	TableMatches,
	TableObservations,
	TableInvitations,
	TableDictionaries,
	TableClubs,
	TableTeams,
	TablePersons,
	TableMeta,
}

// Document is the versioned root object owning one container per table.
type Document struct {
	Version   int                       `json:"version"`
	UpdatedAt string                    `json:"updatedAt"`
	Tables    map[Table]json.RawMessage `json:"tables"`
}

// Meta holds the non-entity metadata container.
type Meta struct {
	WatchlistPlayerIDs []string `json:"watchlistPlayerIds"`
}

// StoreConfig configures a Store.
type StoreConfig struct {
	Slots  storage.SlotStore
	Clock  func() time.Time
	Logger *zap.Logger
}

// Store owns the persisted document. All document read-modify-write cycles run
// under a single mutex so the single-writer assumption holds with real threads.
type Store struct {
	mu     sync.Mutex
	slots  storage.SlotStore
	clock  func() time.Time
	logger *zap.Logger
}

// NewStore constructs a Store with the provided configuration.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Slots == nil {
		return nil, errMissingSlots
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{slots: cfg.Slots, clock: clock, logger: logger}, nil
}

func defaultContainer(name Table) json.RawMessage {
	if name == TableMeta {
		return json.RawMessage(`{"watchlistPlayerIds":[]}`)
	}
	return json.RawMessage(`[]`)
}

func (s *Store) emptyDocument() Document {
	tables := make(map[Table]json.RawMessage, len(knownTables))
	for _, name := range knownTables {
		tables[name] = defaultContainer(name)
	}
	return Document{
		Version:   documentVersion,
		UpdatedAt: s.clock().UTC().Format(time.RFC3339Nano),
		Tables:    tables,
	}
}

// readDocument loads and migrates the persisted document. Anything that fails
// structural validation yields a fresh empty document.
func (s *Store) readDocument() Document {
	raw, ok, err := s.slots.Get(dbSlotKey)
	if err != nil {
		s.logger.Warn("local document read failed, starting empty", zap.Error(err))
		return s.emptyDocument()
	}
	if !ok {
		return s.emptyDocument()
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.logger.Warn("local document is malformed, starting empty", zap.Error(err))
		return s.emptyDocument()
	}
	if doc.Version != documentVersion || doc.Tables == nil {
		s.logger.Warn("local document version mismatch, starting empty",
			zap.Int("version", doc.Version))
		return s.emptyDocument()
	}

	for _, name := range knownTables {
		if _, present := doc.Tables[name]; !present {
			doc.Tables[name] = defaultContainer(name)
		}
	}
	return doc
}

func (s *Store) writeDocument(doc Document) error {
	doc.UpdatedAt = s.clock().UTC().Format(time.RFC3339Nano)
	encoded, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.slots.Set(dbSlotKey, string(encoded))
}

// GetTable returns the current container for a table. It never fails: absent
// or corrupt data yields the table's empty default.
func (s *Store) GetTable(name Table) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.readDocument()
	container, ok := doc.Tables[name]
	if !ok || len(container) == 0 {
		return defaultContainer(name)
	}
	return container
}

// SetTable atomically replaces the container for one table and persists the
// whole document.
func (s *Store) SetTable(name Table, container json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.readDocument()
	doc.Tables[name] = container
	return s.writeDocument(doc)
}

// UpdateTable applies fn to the current container for a table and persists the
// result, all under the store lock.
func (s *Store) UpdateTable(name Table, fn func(container json.RawMessage) json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.readDocument()
	current, ok := doc.Tables[name]
	if !ok || len(current) == 0 {
		current = defaultContainer(name)
	}
	doc.Tables[name] = fn(current)
	return s.writeDocument(doc)
}

// Reset replaces the entire document with an empty one.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDocument(s.emptyDocument())
}

// WatchlistPlayerIDs returns the watchlist from the meta container.
func (s *Store) WatchlistPlayerIDs() []string {
	container := s.GetTable(TableMeta)
	var meta Meta
	if err := json.Unmarshal(container, &meta); err != nil {
		return nil
	}
	return meta.WatchlistPlayerIDs
}

// SetWatchlistPlayerIDs replaces the watchlist, dropping duplicates while
// preserving first-seen order.
func (s *Store) SetWatchlistPlayerIDs(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	encoded, err := json.Marshal(Meta{WatchlistPlayerIDs: deduped})
	if err != nil {
		return err
	}
	return s.SetTable(TableMeta, encoded)
}
