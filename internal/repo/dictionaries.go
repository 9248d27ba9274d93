package repo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/gateway"
	"github.com/pbaranSii/TalentTrack/internal/localdb"
	"github.com/pbaranSii/TalentTrack/internal/model"
)

var seedValues = map[model.DictionaryType][]string{
	model.DictionaryTypePosition:      {"GK", "CB", "FB", "CM", "AM", "W", "ST"},
	model.DictionaryTypeFoot:          {"prawa", "lewa", "obunożny"},
	model.DictionaryTypeSource:        {"zgłoszenie", "polecenie", "scouting"},
	model.DictionaryTypeMatchCategory: {"U8", "U9", "U10", "U11", "U12", "U13", "U14", "U15", "U16", "U17", "U18", "U19"},
	model.DictionaryTypeLeagueRank:    {"Ekstraklasa", "I liga", "II liga", "III liga", "IV liga", "Liga okręgowa", "Klasa"},
}

var seedOrder = []model.DictionaryType{
	model.DictionaryTypePosition,
	model.DictionaryTypeFoot,
	model.DictionaryTypeSource,
	model.DictionaryTypeMatchCategory,
	model.DictionaryTypeLeagueRank,
}

// SeedDictionaries returns the built-in dictionary values used until a remote
// refresh succeeds. The ids are stable across runs so stored references keep
// resolving.
func SeedDictionaries() []model.Dictionary {
	var seeded []model.Dictionary
	for _, dictType := range seedOrder {
		for i, value := range seedValues[dictType] {
			seeded = append(seeded, model.Dictionary{
				ID:        fmt.Sprintf("dict_%s_%d", dictType, i),
				Type:      dictType,
				Value:     value,
				SortOrder: i,
				IsActive:  true,
			})
		}
	}
	return seeded
}

// Dictionaries serves the reference values backing form selects. The table is
// read-only from the client's perspective: there is no local-first write path,
// only the seed and remote refreshes.
type Dictionaries struct {
	store   *localdb.Store
	gateway *gateway.Client
	clock   func() time.Time
	logger  *zap.Logger
}

// NewDictionaries constructs a Dictionaries repository.
func NewDictionaries(cfg Config) (*Dictionaries, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Gateway == nil {
		return nil, errMissingGateway
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dictionaries{store: cfg.Store, gateway: cfg.Gateway, clock: clock, logger: logger}, nil
}

// lessDictionaries orders by type then sort order.
func lessDictionaries(a, b model.Dictionary) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.SortOrder < b.SortOrder
}

func activeOnly(list []model.Dictionary) []model.Dictionary {
	active := make([]model.Dictionary, 0, len(list))
	for _, d := range list {
		if d.IsActive {
			active = append(active, d)
		}
	}
	return active
}

// EnsureSeeded seeds the dictionary table if it is empty and returns the
// active entries.
func (r *Dictionaries) EnsureSeeded() []model.Dictionary {
	current := decodeList[model.Dictionary](r.store.GetTable(localdb.TableDictionaries), r.logger, localdb.TableDictionaries)
	if len(current) > 0 {
		return normalize(activeOnly(current), lessDictionaries)
	}
	seeded := SeedDictionaries()
	if err := updateList(r.store, localdb.TableDictionaries, r.logger, lessDictionaries,
		func([]model.Dictionary) []model.Dictionary { return seeded }); err != nil {
		r.logger.Warn("dictionary seed write failed", zap.Error(err))
	}
	return normalize(activeOnly(seeded), lessDictionaries)
}

// GetAllLocal returns the active dictionary entries, seeding first if needed.
func (r *Dictionaries) GetAllLocal() []model.Dictionary {
	return r.EnsureSeeded()
}

// GetByTypeLocal returns the active entries of one dictionary type.
func (r *Dictionaries) GetByTypeLocal(dictType model.DictionaryType) []model.Dictionary {
	all := r.GetAllLocal()
	matched := make([]model.Dictionary, 0, len(all))
	for _, d := range all {
		if d.Type == dictType {
			matched = append(matched, d)
		}
	}
	return matched
}

// RefreshFromRemote fetches dictionaries, optionally scoped to one type. A
// typed fetch replaces only that type's entries; on failure the cached or
// seeded values stay in place and the error is returned.
func (r *Dictionaries) RefreshFromRemote(ctx context.Context, dictType model.DictionaryType) error {
	remote, err := r.gateway.ListDictionaries(ctx, dictType)
	if err != nil {
		r.EnsureSeeded()
		return err
	}
	return updateList(r.store, localdb.TableDictionaries, r.logger, lessDictionaries,
		func(current []model.Dictionary) []model.Dictionary {
			return mergeSnapshot(current, remote, func(d model.Dictionary) bool {
				return dictType != "" && d.Type != dictType
			}, lessDictionaries)
		})
}
