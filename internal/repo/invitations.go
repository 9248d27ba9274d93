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

// Invitations is the local-first repository for trial invitations. Unlike the
// other entities, invitations carry an explicit origin marker because freeform
// invitations can exist locally with no server-side counterpart at all.
type Invitations struct {
	store   *localdb.Store
	outbox  *outbox.Queue
	gateway *gateway.Client
	clock   func() time.Time
	ids     LocalIDProvider
	logger  *zap.Logger
}

// NewInvitations constructs an Invitations repository.
func NewInvitations(cfg Config) (*Invitations, error) {
	cfg, err := cfg.prepare()
	if err != nil {
		return nil, err
	}
	return &Invitations{
		store:   cfg.Store,
		outbox:  cfg.Outbox,
		gateway: cfg.Gateway,
		clock:   cfg.Clock,
		ids:     cfg.IDProvider,
		logger:  cfg.Logger,
	}, nil
}

// lessInvitations orders newest invitation date first, then newest created.
func lessInvitations(a, b model.Invitation) bool {
	if a.InvitationDate != b.InvitationDate {
		return a.InvitationDate > b.InvitationDate
	}
	return a.CreatedAt > b.CreatedAt
}

// GetAllLocal returns all invitations from the store in canonical order.
func (r *Invitations) GetAllLocal() []model.Invitation {
	list := decodeList[model.Invitation](r.store.GetTable(localdb.TableInvitations), r.logger, localdb.TableInvitations)
	return normalize(list, lessInvitations)
}

// GetByPlayerIDLocal returns the invitations linked to one player.
func (r *Invitations) GetByPlayerIDLocal(playerID string) []model.Invitation {
	all := r.GetAllLocal()
	matched := make([]model.Invitation, 0, len(all))
	for _, invitation := range all {
		if invitation.PlayerID != nil && *invitation.PlayerID == playerID {
			matched = append(matched, invitation)
		}
	}
	return matched
}

// SetAllLocal normalizes and writes the full table back.
func (r *Invitations) SetAllLocal(list []model.Invitation) error {
	return updateList(r.store, localdb.TableInvitations, r.logger, lessInvitations,
		func([]model.Invitation) []model.Invitation { return list })
}

// RefreshFromRemote fetches invitations and merges them into the store. Every
// record with local origin survives the merge; when playerID is non-empty,
// confirmed records for other players are also left untouched.
func (r *Invitations) RefreshFromRemote(ctx context.Context, playerID string) error {
	remote, err := r.gateway.ListInvitations(ctx, playerID)
	if err != nil {
		return err
	}
	for i := range remote {
		remote[i].Origin = model.OriginRemote
	}
	return updateList(r.store, localdb.TableInvitations, r.logger, lessInvitations,
		func(current []model.Invitation) []model.Invitation {
			return mergeSnapshot(current, remote, func(inv model.Invitation) bool {
				if inv.Origin == model.OriginLocal {
					return true
				}
				if playerID == "" {
					return false
				}
				return inv.PlayerID == nil || *inv.PlayerID != playerID
			}, lessInvitations)
		})
}

// CreateLocalFirst commits an invitation linked to an existing player, then
// attempts the remote create.
func (r *Invitations) CreateLocalFirst(ctx context.Context, input model.CreateInvitationInput, createdByUserID string) (model.Invitation, error) {
	localID, err := r.ids.NewLocalID(InvitationIDPrefix)
	if err != nil {
		return model.Invitation{}, err
	}
	now := nowISO(r.clock)
	playerID := input.PlayerID
	local := model.Invitation{
		ID:              localID,
		InvitationDate:  input.InvitationDate,
		Month:           input.Month,
		TeamID:          input.TeamID,
		Status:          input.Status,
		Comment:         input.Comment,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: createdByUserID,
		Origin:          model.OriginLocal,
		PlayerID:        &playerID,
	}

	err = updateList(r.store, localdb.TableInvitations, r.logger, lessInvitations,
		func(current []model.Invitation) []model.Invitation {
			return upsertRecord(current, local, lessInvitations)
		})
	if err != nil {
		return model.Invitation{}, err
	}

	op, err := r.outbox.Enqueue(outbox.EntityInvitations, outbox.OperationCreate,
		CreatePayload[model.CreateInvitationInput]{
			Input:           input,
			LocalID:         localID,
			CreatedByUserID: createdByUserID,
			Kind:            InvitationKindExistingPlayer,
		})
	if err != nil {
		r.logger.Warn("invitation outbox enqueue failed", zap.String("local_id", localID), zap.Error(err))
		return local, nil
	}

	created, err := r.gateway.CreateInvitation(ctx, input)
	if err != nil {
		r.logger.Info("invitation remote create deferred",
			zap.String("local_id", localID), zap.Error(err))
		if markErr := r.outbox.MarkError(op.ID, err.Error()); markErr != nil {
			r.logger.Warn("outbox error mark failed", zap.String("operation_id", op.ID), zap.Error(markErr))
		}
		return local, nil
	}

	created.Origin = model.OriginRemote
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
// one as a single atomic swap. The caller must have set the remote origin.
func (r *Invitations) ConfirmCreate(localID string, created model.Invitation) error {
	return updateList(r.store, localdb.TableInvitations, r.logger, lessInvitations,
		func(current []model.Invitation) []model.Invitation {
			return upsertRecord(removeRecord(current, localID), created, lessInvitations)
		})
}

// CreateFreeformLocalFirst commits an invitation carrying a player/parent
// snapshot for a player that does not exist yet. No remote create is
// attempted: the record can only sync once a scout links it to a registered
// player, so the queued operation waits for that.
func (r *Invitations) CreateFreeformLocalFirst(input model.CreateFreeformInvitationInput, createdByUserID string) (model.Invitation, error) {
	localID, err := r.ids.NewLocalID(InvitationIDPrefix)
	if err != nil {
		return model.Invitation{}, err
	}
	now := nowISO(r.clock)
	local := model.Invitation{
		ID:              localID,
		InvitationDate:  input.InvitationDate,
		Month:           input.Month,
		TeamID:          input.TeamID,
		Status:          input.Status,
		Comment:         input.Comment,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: createdByUserID,
		Origin:          model.OriginLocal,

		PlayerFirstName:      &input.PlayerFirstName,
		PlayerLastName:       &input.PlayerLastName,
		PlayerBirthYear:      input.PlayerBirthYear,
		PlayerBirthDate:      input.PlayerBirthDate,
		PlayerClubName:       input.PlayerClubName,
		PlayerPositionID:     input.PlayerPositionID,
		PlayerDominantFootID: input.PlayerDominantFootID,

		ParentFirstName: input.ParentFirstName,
		ParentLastName:  input.ParentLastName,
		ParentPhone:     input.ParentPhone,
		ParentEmail:     input.ParentEmail,

		PlannedObservationDate: input.PlannedObservationDate,
		PlannedMatchDate:       input.PlannedMatchDate,
	}

	err = updateList(r.store, localdb.TableInvitations, r.logger, lessInvitations,
		func(current []model.Invitation) []model.Invitation {
			return upsertRecord(current, local, lessInvitations)
		})
	if err != nil {
		return model.Invitation{}, err
	}

	if _, err := r.outbox.Enqueue(outbox.EntityInvitations, outbox.OperationCreate,
		CreatePayload[model.CreateFreeformInvitationInput]{
			Input:           input,
			LocalID:         localID,
			CreatedByUserID: createdByUserID,
			Kind:            InvitationKindFreeform,
		}); err != nil {
		r.logger.Warn("invitation outbox enqueue failed", zap.String("local_id", localID), zap.Error(err))
	}
	return local, nil
}
