package storage

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("storage: database handle is required")

// SlotStore reads and writes string-keyed persistence slots. Implementations
// must treat each value as opaque and replace it wholesale on Set.
type SlotStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

type sqliteSlots struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewSQLiteSlots returns a SlotStore backed by the storage_slots table.
func NewSQLiteSlots(db *gorm.DB, clock func() time.Time) (SlotStore, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	if clock == nil {
		clock = time.Now
	}
	return &sqliteSlots{db: db, clock: clock}, nil
}

func (s *sqliteSlots) Get(key string) (string, bool, error) {
	var slot Slot
	err := s.db.Where("slot_key = ?", key).Take(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return slot.Value, true, nil
}

func (s *sqliteSlots) Set(key, value string) error {
	slot := Slot{
		Key:              key,
		Value:            value,
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"slot_value", "updated_at_s"}),
	}).Create(&slot).Error
}

type memorySlots struct {
	mu    sync.Mutex
	slots map[string]string
}

// NewMemorySlots returns an in-memory SlotStore for tests.
func NewMemorySlots() SlotStore {
	return &memorySlots{slots: make(map[string]string)}
}

func (m *memorySlots) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.slots[key]
	return value, ok, nil
}

func (m *memorySlots) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
	return nil
}
