package repo

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/gateway"
	"github.com/pbaranSii/TalentTrack/internal/localdb"
	"github.com/pbaranSii/TalentTrack/internal/model"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
)

// Players is the local-first repository for players.
type Players struct {
	store   *localdb.Store
	outbox  *outbox.Queue
	gateway *gateway.Client
	clock   func() time.Time
	ids     LocalIDProvider
	logger  *zap.Logger
}

// NewPlayers constructs a Players repository.
func NewPlayers(cfg Config) (*Players, error) {
	cfg, err := cfg.prepare()
	if err != nil {
		return nil, err
	}
	return &Players{
		store:   cfg.Store,
		outbox:  cfg.Outbox,
		gateway: cfg.Gateway,
		clock:   cfg.Clock,
		ids:     cfg.IDProvider,
		logger:  cfg.Logger,
	}, nil
}

// lessPlayers orders by last name then first name, Polish collation,
// case-insensitive.
func lessPlayers(a, b model.Player) bool {
	if c := compareText(a.LastName, b.LastName); c != 0 {
		return c < 0
	}
	return compareText(a.FirstName, b.FirstName) < 0
}

// GetAllLocal returns all players from the store in canonical order. It never
// fails; an absent table yields an empty slice.
func (r *Players) GetAllLocal() []model.Player {
	list := decodeList[model.Player](r.store.GetTable(localdb.TablePlayers), r.logger, localdb.TablePlayers)
	return normalize(list, lessPlayers)
}

// GetByIDLocal returns the player with the given id, or nil.
func (r *Players) GetByIDLocal(id string) *model.Player {
	for _, player := range r.GetAllLocal() {
		if player.ID == id {
			copied := player
			return &copied
		}
	}
	return nil
}

// SetAllLocal normalizes and writes the full table back.
func (r *Players) SetAllLocal(list []model.Player) error {
	return updateList(r.store, localdb.TablePlayers, r.logger, lessPlayers,
		func([]model.Player) []model.Player { return list })
}

// RefreshFromRemote fetches the full player collection and merges it into the
// store. Unconfirmed local players survive the merge; on gateway failure the
// store is left untouched and the error is returned.
func (r *Players) RefreshFromRemote(ctx context.Context) error {
	remote, err := r.gateway.ListPlayers(ctx)
	if err != nil {
		return err
	}
	pending := pendingIDs(r.outbox, outbox.EntityPlayers)
	return updateList(r.store, localdb.TablePlayers, r.logger, lessPlayers,
		func(current []model.Player) []model.Player {
			return mergeSnapshot(current, remote, func(p model.Player) bool {
				_, ok := pending[p.ID]
				return ok
			}, lessPlayers)
		})
}

// RefreshOneFromRemote fetches a single player and upserts it into the store.
func (r *Players) RefreshOneFromRemote(ctx context.Context, id string) (*model.Player, error) {
	remote, err := r.gateway.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	err = updateList(r.store, localdb.TablePlayers, r.logger, lessPlayers,
		func(current []model.Player) []model.Player {
			return upsertRecord(current, remote, lessPlayers)
		})
	if err != nil {
		return nil, err
	}
	return &remote, nil
}

// CreateLocalFirst commits a new player locally, enqueues the outbox CREATE,
// then attempts the remote create. On success the temporary record is replaced
// by the server-assigned one and the queued operation is removed; on any
// gateway failure the local record is returned unchanged and the operation
// stays queued with its error recorded. The returned error is non-nil only
// when local persistence itself fails.
func (r *Players) CreateLocalFirst(ctx context.Context, input model.CreatePlayerInput, createdByUserID string) (model.Player, error) {
	localID, err := r.ids.NewLocalID(PlayerIDPrefix)
	if err != nil {
		return model.Player{}, err
	}
	now := nowISO(r.clock)
	local := model.Player{
		ID:              localID,
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		BirthYear:       input.BirthYear,
		BirthDate:       input.BirthDate,
		DominantFootID:  input.DominantFootID,
		MainPositionID:  input.MainPositionID,
		ClubID:          input.ClubID,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: createdByUserID,
	}

	// Local commit precedes the outbox enqueue, which precedes the network
	// attempt. The record must be durable before anything can fail.
	err = updateList(r.store, localdb.TablePlayers, r.logger, lessPlayers,
		func(current []model.Player) []model.Player {
			return upsertRecord(current, local, lessPlayers)
		})
	if err != nil {
		return model.Player{}, err
	}

	op, err := r.outbox.Enqueue(outbox.EntityPlayers, outbox.OperationCreate,
		CreatePayload[model.CreatePlayerInput]{Input: input, LocalID: localID, CreatedByUserID: createdByUserID})
	if err != nil {
		r.logger.Warn("player outbox enqueue failed", zap.String("local_id", localID), zap.Error(err))
		return local, nil
	}

	created, err := r.gateway.CreatePlayer(ctx, input)
	if err != nil {
		r.logger.Info("player remote create deferred",
			zap.String("local_id", localID), zap.Error(err))
		if markErr := r.outbox.MarkError(op.ID, err.Error()); markErr != nil {
			r.logger.Warn("outbox error mark failed", zap.String("operation_id", op.ID), zap.Error(markErr))
		}
		return local, nil
	}

	// The server response does not know about the creator; carry it forward.
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
// one as a single atomic swap, so the table never holds both.
func (r *Players) ConfirmCreate(localID string, created model.Player) error {
	return updateList(r.store, localdb.TablePlayers, r.logger, lessPlayers,
		func(current []model.Player) []model.Player {
			return upsertRecord(removeRecord(current, localID), created, lessPlayers)
		})
}

// ConfirmUpdate replaces the locally patched record with the server response.
func (r *Players) ConfirmUpdate(updated model.Player) error {
	return updateList(r.store, localdb.TablePlayers, r.logger, lessPlayers,
		func(current []model.Player) []model.Player {
			return upsertRecord(current, updated, lessPlayers)
		})
}

// UpdateLocalFirst patches an existing player locally, then attempts the
// remote update. A missing id returns (nil, nil) with no side effect.
func (r *Players) UpdateLocalFirst(ctx context.Context, id string, patch model.UpdatePlayerInput) (*model.Player, error) {
	existing := r.GetByIDLocal(id)
	if existing == nil {
		return nil, nil
	}

	updated := applyPlayerPatch(*existing, patch)
	updated.UpdatedAt = nowISO(r.clock)

	err := updateList(r.store, localdb.TablePlayers, r.logger, lessPlayers,
		func(current []model.Player) []model.Player {
			return upsertRecord(current, updated, lessPlayers)
		})
	if err != nil {
		return nil, err
	}

	op, err := r.outbox.Enqueue(outbox.EntityPlayers, outbox.OperationUpdate,
		UpdatePayload[model.UpdatePlayerInput]{ID: id, Patch: patch})
	if err != nil {
		r.logger.Warn("player outbox enqueue failed", zap.String("id", id), zap.Error(err))
		return &updated, nil
	}

	remote, err := r.gateway.UpdatePlayer(ctx, id, patch)
	if err != nil {
		if markErr := r.outbox.MarkError(op.ID, err.Error()); markErr != nil {
			r.logger.Warn("outbox error mark failed", zap.String("operation_id", op.ID), zap.Error(markErr))
		}
		return &updated, nil
	}

	remote.CreatedByUserID = existing.CreatedByUserID
	if err := r.ConfirmUpdate(remote); err != nil {
		return &remote, err
	}
	if err := r.outbox.RemoveByID(op.ID); err != nil {
		r.logger.Warn("outbox remove failed", zap.String("operation_id", op.ID), zap.Error(err))
	}
	return &remote, nil
}

func applyPlayerPatch(player model.Player, patch model.UpdatePlayerInput) model.Player {
	if patch.FirstName != nil {
		player.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		player.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.BirthYear != nil {
		player.BirthYear = patch.BirthYear
	}
	if patch.BirthDate != nil {
		player.BirthDate = patch.BirthDate
	}
	if patch.DominantFootID != nil {
		player.DominantFootID = *patch.DominantFootID
	}
	if patch.MainPositionID != nil {
		player.MainPositionID = *patch.MainPositionID
	}
	if patch.ClubID != nil {
		player.ClubID = patch.ClubID
	}
	return player
}
