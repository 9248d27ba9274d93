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

// Clubs is the local-first repository for clubs.
type Clubs struct {
	store   *localdb.Store
	outbox  *outbox.Queue
	gateway *gateway.Client
	clock   func() time.Time
	ids     LocalIDProvider
	logger  *zap.Logger
}

// NewClubs constructs a Clubs repository.
func NewClubs(cfg Config) (*Clubs, error) {
	cfg, err := cfg.prepare()
	if err != nil {
		return nil, err
	}
	return &Clubs{
		store:   cfg.Store,
		outbox:  cfg.Outbox,
		gateway: cfg.Gateway,
		clock:   cfg.Clock,
		ids:     cfg.IDProvider,
		logger:  cfg.Logger,
	}, nil
}

func lessClubs(a, b model.Club) bool {
	return compareText(a.Name, b.Name) < 0
}

// GetAllLocal returns all clubs from the store ordered by name.
func (r *Clubs) GetAllLocal() []model.Club {
	list := decodeList[model.Club](r.store.GetTable(localdb.TableClubs), r.logger, localdb.TableClubs)
	return normalize(list, lessClubs)
}

// GetByIDLocal returns the club with the given id, or nil.
func (r *Clubs) GetByIDLocal(id string) *model.Club {
	for _, club := range r.GetAllLocal() {
		if club.ID == id {
			copied := club
			return &copied
		}
	}
	return nil
}

// SetAllLocal normalizes and writes the full table back.
func (r *Clubs) SetAllLocal(list []model.Club) error {
	return updateList(r.store, localdb.TableClubs, r.logger, lessClubs,
		func([]model.Club) []model.Club { return list })
}

// RefreshFromRemote fetches all clubs and merges them into the store,
// preserving unconfirmed local clubs.
func (r *Clubs) RefreshFromRemote(ctx context.Context) error {
	remote, err := r.gateway.ListClubs(ctx)
	if err != nil {
		return err
	}
	pending := pendingIDs(r.outbox, outbox.EntityClubs)
	return updateList(r.store, localdb.TableClubs, r.logger, lessClubs,
		func(current []model.Club) []model.Club {
			return mergeSnapshot(current, remote, func(c model.Club) bool {
				_, ok := pending[c.ID]
				return ok
			}, lessClubs)
		})
}

// ConfirmCreate replaces the temporary local record with the server-assigned
// one as a single atomic swap.
func (r *Clubs) ConfirmCreate(localID string, created model.Club) error {
	return updateList(r.store, localdb.TableClubs, r.logger, lessClubs,
		func(current []model.Club) []model.Club {
			return upsertRecord(removeRecord(current, localID), created, lessClubs)
		})
}

// CreateLocalFirst commits a new club locally, enqueues the outbox CREATE,
// then attempts the remote create.
func (r *Clubs) CreateLocalFirst(ctx context.Context, input model.CreateClubInput, createdByUserID string) (model.Club, error) {
	localID, err := r.ids.NewLocalID(ClubIDPrefix)
	if err != nil {
		return model.Club{}, err
	}
	now := nowISO(r.clock)
	local := model.Club{
		ID:              localID,
		Name:            strings.TrimSpace(input.Name),
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: createdByUserID,
	}

	err = updateList(r.store, localdb.TableClubs, r.logger, lessClubs,
		func(current []model.Club) []model.Club {
			return upsertRecord(current, local, lessClubs)
		})
	if err != nil {
		return model.Club{}, err
	}

	op, err := r.outbox.Enqueue(outbox.EntityClubs, outbox.OperationCreate,
		CreatePayload[model.CreateClubInput]{Input: input, LocalID: localID, CreatedByUserID: createdByUserID})
	if err != nil {
		r.logger.Warn("club outbox enqueue failed", zap.String("local_id", localID), zap.Error(err))
		return local, nil
	}

	created, err := r.gateway.CreateClub(ctx, input)
	if err != nil {
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
