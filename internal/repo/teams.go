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

// Teams is the local-first repository for club teams.
type Teams struct {
	store   *localdb.Store
	outbox  *outbox.Queue
	gateway *gateway.Client
	clock   func() time.Time
	ids     LocalIDProvider
	logger  *zap.Logger
}

// NewTeams constructs a Teams repository.
func NewTeams(cfg Config) (*Teams, error) {
	cfg, err := cfg.prepare()
	if err != nil {
		return nil, err
	}
	return &Teams{
		store:   cfg.Store,
		outbox:  cfg.Outbox,
		gateway: cfg.Gateway,
		clock:   cfg.Clock,
		ids:     cfg.IDProvider,
		logger:  cfg.Logger,
	}, nil
}

func lessTeams(a, b model.Team) bool {
	return compareText(a.Name, b.Name) < 0
}

// GetAllLocal returns all teams from the store ordered by name.
func (r *Teams) GetAllLocal() []model.Team {
	list := decodeList[model.Team](r.store.GetTable(localdb.TableTeams), r.logger, localdb.TableTeams)
	return normalize(list, lessTeams)
}

// GetByClubIDLocal returns the teams belonging to one club.
func (r *Teams) GetByClubIDLocal(clubID string) []model.Team {
	all := r.GetAllLocal()
	matched := make([]model.Team, 0, len(all))
	for _, team := range all {
		if team.ClubID == clubID {
			matched = append(matched, team)
		}
	}
	return matched
}

// SetAllLocal normalizes and writes the full table back.
func (r *Teams) SetAllLocal(list []model.Team) error {
	return updateList(r.store, localdb.TableTeams, r.logger, lessTeams,
		func([]model.Team) []model.Team { return list })
}

// RefreshFromRemote fetches teams, optionally scoped to one club, and merges
// them into the store. Unconfirmed local teams and out-of-scope records
// survive.
func (r *Teams) RefreshFromRemote(ctx context.Context, clubID string) error {
	remote, err := r.gateway.ListTeams(ctx, clubID)
	if err != nil {
		return err
	}
	pending := pendingIDs(r.outbox, outbox.EntityTeams)
	return updateList(r.store, localdb.TableTeams, r.logger, lessTeams,
		func(current []model.Team) []model.Team {
			return mergeSnapshot(current, remote, func(t model.Team) bool {
				if _, ok := pending[t.ID]; ok {
					return true
				}
				return clubID != "" && t.ClubID != clubID
			}, lessTeams)
		})
}

// ConfirmCreate replaces the temporary local record with the server-assigned
// one as a single atomic swap.
func (r *Teams) ConfirmCreate(localID string, created model.Team) error {
	return updateList(r.store, localdb.TableTeams, r.logger, lessTeams,
		func(current []model.Team) []model.Team {
			return upsertRecord(removeRecord(current, localID), created, lessTeams)
		})
}

// CreateLocalFirst commits a new team locally, enqueues the outbox CREATE,
// then attempts the remote create.
func (r *Teams) CreateLocalFirst(ctx context.Context, input model.CreateTeamInput, createdByUserID string) (model.Team, error) {
	localID, err := r.ids.NewLocalID(TeamIDPrefix)
	if err != nil {
		return model.Team{}, err
	}
	now := nowISO(r.clock)
	local := model.Team{
		ID:              localID,
		ClubID:          input.ClubID,
		Name:            strings.TrimSpace(input.Name),
		CategoryID:      input.CategoryID,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: createdByUserID,
	}

	err = updateList(r.store, localdb.TableTeams, r.logger, lessTeams,
		func(current []model.Team) []model.Team {
			return upsertRecord(current, local, lessTeams)
		})
	if err != nil {
		return model.Team{}, err
	}

	op, err := r.outbox.Enqueue(outbox.EntityTeams, outbox.OperationCreate,
		CreatePayload[model.CreateTeamInput]{Input: input, LocalID: localID, CreatedByUserID: createdByUserID})
	if err != nil {
		r.logger.Warn("team outbox enqueue failed", zap.String("local_id", localID), zap.Error(err))
		return local, nil
	}

	created, err := r.gateway.CreateTeam(ctx, input)
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
