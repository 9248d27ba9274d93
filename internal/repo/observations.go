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

// Observations is the local-first repository for scouting observations.
type Observations struct {
	store   *localdb.Store
	outbox  *outbox.Queue
	gateway *gateway.Client
	clock   func() time.Time
	ids     LocalIDProvider
	logger  *zap.Logger
}

// NewObservations constructs an Observations repository.
func NewObservations(cfg Config) (*Observations, error) {
	cfg, err := cfg.prepare()
	if err != nil {
		return nil, err
	}
	return &Observations{
		store:   cfg.Store,
		outbox:  cfg.Outbox,
		gateway: cfg.Gateway,
		clock:   cfg.Clock,
		ids:     cfg.IDProvider,
		logger:  cfg.Logger,
	}, nil
}

// lessObservations orders newest observation date first, then newest created.
func lessObservations(a, b model.Observation) bool {
	if a.ObservationDate != b.ObservationDate {
		return a.ObservationDate > b.ObservationDate
	}
	return a.CreatedAt > b.CreatedAt
}

// GetAllLocal returns all observations from the store in canonical order.
func (r *Observations) GetAllLocal() []model.Observation {
	list := decodeList[model.Observation](r.store.GetTable(localdb.TableObservations), r.logger, localdb.TableObservations)
	return normalize(list, lessObservations)
}

// GetByPlayerIDLocal returns the observations for one player.
func (r *Observations) GetByPlayerIDLocal(playerID string) []model.Observation {
	all := r.GetAllLocal()
	matched := make([]model.Observation, 0, len(all))
	for _, observation := range all {
		if observation.PlayerID == playerID {
			matched = append(matched, observation)
		}
	}
	return matched
}

// SetAllLocal normalizes and writes the full table back.
func (r *Observations) SetAllLocal(list []model.Observation) error {
	return updateList(r.store, localdb.TableObservations, r.logger, lessObservations,
		func([]model.Observation) []model.Observation { return list })
}

// RefreshFromRemote fetches observations and merges them into the store. When
// playerID is non-empty only that player's confirmed records are replaced;
// records outside the scope are left untouched. Unconfirmed local records
// always survive.
func (r *Observations) RefreshFromRemote(ctx context.Context, playerID string) error {
	remote, err := r.gateway.ListObservations(ctx, playerID)
	if err != nil {
		return err
	}
	pending := pendingIDs(r.outbox, outbox.EntityObservations)
	return updateList(r.store, localdb.TableObservations, r.logger, lessObservations,
		func(current []model.Observation) []model.Observation {
			return mergeSnapshot(current, remote, func(o model.Observation) bool {
				if _, ok := pending[o.ID]; ok {
					return true
				}
				return playerID != "" && o.PlayerID != playerID
			}, lessObservations)
		})
}

// CreateLocalFirst commits a new observation locally with sync status LOCAL,
// enqueues the outbox CREATE, then attempts the remote create. The remote copy
// is submitted as already synced.
func (r *Observations) CreateLocalFirst(ctx context.Context, input model.CreateObservationInput, createdByUserID string) (model.Observation, error) {
	localID, err := r.ids.NewLocalID(ObservationIDPrefix)
	if err != nil {
		return model.Observation{}, err
	}
	now := nowISO(r.clock)
	local := model.Observation{
		ID:              localID,
		PlayerID:        input.PlayerID,
		ObservationDate: input.ObservationDate,
		ObservationType: input.ObservationType,
		SourceID:        input.SourceID,
		MatchID:         input.MatchID,
		TeamContext:     input.TeamContext,
		PotentialGrade:  input.PotentialGrade,
		PotentialNow:    input.PotentialNow,
		PotentialFuture: input.PotentialFuture,
		Comment:         input.Comment,
		Notes:           input.Notes,
		ScoutID:         input.ScoutID,
		CreatedOffline:  true,
		SyncStatus:      model.SyncStatusLocal,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: createdByUserID,
	}

	err = updateList(r.store, localdb.TableObservations, r.logger, lessObservations,
		func(current []model.Observation) []model.Observation {
			return upsertRecord(current, local, lessObservations)
		})
	if err != nil {
		return model.Observation{}, err
	}

	op, err := r.outbox.Enqueue(outbox.EntityObservations, outbox.OperationCreate,
		CreatePayload[model.CreateObservationInput]{Input: input, LocalID: localID, CreatedByUserID: createdByUserID})
	if err != nil {
		r.logger.Warn("observation outbox enqueue failed", zap.String("local_id", localID), zap.Error(err))
		return local, nil
	}

	remoteInput := input
	remoteInput.CreatedOffline = false
	remoteInput.SyncStatus = model.SyncStatusSynced

	created, err := r.gateway.CreateObservation(ctx, remoteInput)
	if err != nil {
		r.logger.Info("observation remote create deferred",
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

// ConfirmCreate replaces the temporary local record with the server-assigned
// one as a single atomic swap.
func (r *Observations) ConfirmCreate(localID string, created model.Observation) error {
	return updateList(r.store, localdb.TableObservations, r.logger, lessObservations,
		func(current []model.Observation) []model.Observation {
			return upsertRecord(removeRecord(current, localID), created, lessObservations)
		})
}

// MarkSyncError flags a local observation whose replay was rejected by the
// server, so the failure is visible to readers.
func (r *Observations) MarkSyncError(id string) error {
	return updateList(r.store, localdb.TableObservations, r.logger, lessObservations,
		func(current []model.Observation) []model.Observation {
			for i := range current {
				if current[i].ID == id {
					current[i].SyncStatus = model.SyncStatusError
				}
			}
			return current
		})
}
