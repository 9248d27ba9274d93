package repo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/gateway"
	"github.com/pbaranSii/TalentTrack/internal/localdb"
	"github.com/pbaranSii/TalentTrack/internal/model"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
)

// Matches is the local-first repository for matches.
type Matches struct {
	store   *localdb.Store
	outbox  *outbox.Queue
	gateway *gateway.Client
	clock   func() time.Time
	ids     LocalIDProvider
	logger  *zap.Logger
}

// NewMatches constructs a Matches repository.
func NewMatches(cfg Config) (*Matches, error) {
	cfg, err := cfg.prepare()
	if err != nil {
		return nil, err
	}
	return &Matches{
		store:   cfg.Store,
		outbox:  cfg.Outbox,
		gateway: cfg.Gateway,
		clock:   cfg.Clock,
		ids:     cfg.IDProvider,
		logger:  cfg.Logger,
	}, nil
}

// lessMatches orders newest date first, falling back to the home team label.
func lessMatches(a, b model.Match) bool {
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	return compareText(a.TeamHome, b.TeamHome) < 0
}

// GetAllLocal returns all matches from the store in canonical order.
func (r *Matches) GetAllLocal() []model.Match {
	list := decodeList[model.Match](r.store.GetTable(localdb.TableMatches), r.logger, localdb.TableMatches)
	return normalize(list, lessMatches)
}

// GetByIDLocal returns the match with the given id, or nil.
func (r *Matches) GetByIDLocal(id string) *model.Match {
	for _, match := range r.GetAllLocal() {
		if match.ID == id {
			copied := match
			return &copied
		}
	}
	return nil
}

// SetAllLocal normalizes and writes the full table back.
func (r *Matches) SetAllLocal(list []model.Match) error {
	return updateList(r.store, localdb.TableMatches, r.logger, lessMatches,
		func([]model.Match) []model.Match { return list })
}

// RefreshFromRemote fetches the full match collection and merges it into the
// store, preserving unconfirmed local matches.
func (r *Matches) RefreshFromRemote(ctx context.Context) error {
	remote, err := r.gateway.ListMatches(ctx)
	if err != nil {
		return err
	}
	pending := pendingIDs(r.outbox, outbox.EntityMatches)
	return updateList(r.store, localdb.TableMatches, r.logger, lessMatches,
		func(current []model.Match) []model.Match {
			return mergeSnapshot(current, remote, func(m model.Match) bool {
				_, ok := pending[m.ID]
				return ok
			}, lessMatches)
		})
}

// ConfirmCreate replaces the temporary local record with the server-assigned
// one as a single atomic swap.
func (r *Matches) ConfirmCreate(localID string, created model.Match) error {
	return updateList(r.store, localdb.TableMatches, r.logger, lessMatches,
		func(current []model.Match) []model.Match {
			return upsertRecord(removeRecord(current, localID), created, lessMatches)
		})
}

// CreateLocalFirst commits a new match locally, enqueues the outbox CREATE,
// then attempts the remote create.
func (r *Matches) CreateLocalFirst(ctx context.Context, input model.CreateMatchInput, createdByUserID string) (model.Match, error) {
	localID, err := r.ids.NewLocalID(MatchIDPrefix)
	if err != nil {
		return model.Match{}, err
	}
	now := nowISO(r.clock)
	local := model.Match{
		ID:              localID,
		MatchType:       input.MatchType,
		Date:            input.Date,
		Month:           input.Month,
		Location:        input.Location,
		TeamHome:        input.TeamHome,
		TeamAway:        input.TeamAway,
		CategoryID:      input.CategoryID,
		LeagueRankID:    input.LeagueRankID,
		Result:          input.Result,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: createdByUserID,
	}

	err = updateList(r.store, localdb.TableMatches, r.logger, lessMatches,
		func(current []model.Match) []model.Match {
			return upsertRecord(current, local, lessMatches)
		})
	if err != nil {
		return model.Match{}, err
	}

	op, err := r.outbox.Enqueue(outbox.EntityMatches, outbox.OperationCreate,
		CreatePayload[model.CreateMatchInput]{Input: input, LocalID: localID, CreatedByUserID: createdByUserID})
	if err != nil {
		r.logger.Warn("match outbox enqueue failed", zap.String("local_id", localID), zap.Error(err))
		return local, nil
	}

	created, err := r.gateway.CreateMatch(ctx, input)
	if err != nil {
		r.logger.Info("match remote create deferred",
			zap.String("local_id", localID), zap.Error(err))
		if markErr := r.outbox.MarkError(op.ID, err.Error()); markErr != nil {
			r.logger.Warn("outbox error mark failed", zap.String("operation_id", op.ID), zap.Error(markErr))
		}
		return local, nil
	}

	created.CreatedByUserID = createdByUserID
	if err := r.ConfirmCreate(localID, created); err != nil {
		return created, err
	}
	if err := r.outbox.RemoveByID(op.ID); err != nil {
		r.logger.Warn("outbox remove failed", zap.String("operation_id", op.ID), zap.Error(err))
	}
	return created, nil
}
