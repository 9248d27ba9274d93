// Package syncer drives the background reconciliation between the local store
// and the remote API: replaying queued outbox operations and pulling fresh
// snapshots into every table.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/gateway"
	"github.com/pbaranSii/TalentTrack/internal/model"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
	"github.com/pbaranSii/TalentTrack/internal/repo"
)

// ErrFreeformPending marks a queued freeform invitation. The remote API has
// no endpoint for an invitation without a registered player, so the operation
// stays queued until a scout links it.
var ErrFreeformPending = errors.New("syncer: freeform invitation waits for a linked player")

var (
	errMissingOutbox = errors.New("syncer: outbox queue is required")
	errMissingRepos  = errors.New("syncer: every repository is required")
)

// Config carries the queue and the repositories the syncer reconciles.
type Config struct {
	Outbox       *outbox.Queue
	Players      *repo.Players
	Matches      *repo.Matches
	Observations *repo.Observations
	Invitations  *repo.Invitations
	Dictionaries *repo.Dictionaries
	Clubs        *repo.Clubs
	Teams        *repo.Teams
	Persons      *repo.Persons
	Gateway      *gateway.Client
	Logger       *zap.Logger
}

// Syncer replays the outbox against the remote API and refreshes local
// tables from remote snapshots.
type Syncer struct {
	queue        *outbox.Queue
	players      *repo.Players
	matches      *repo.Matches
	observations *repo.Observations
	invitations  *repo.Invitations
	dictionaries *repo.Dictionaries
	clubs        *repo.Clubs
	teams        *repo.Teams
	persons      *repo.Persons
	gateway      *gateway.Client
	logger       *zap.Logger
}

// New validates the configuration and constructs a Syncer.
func New(cfg Config) (*Syncer, error) {
	if cfg.Outbox == nil {
		return nil, errMissingOutbox
	}
	if cfg.Players == nil || cfg.Matches == nil || cfg.Observations == nil ||
		cfg.Invitations == nil || cfg.Dictionaries == nil || cfg.Clubs == nil ||
		cfg.Teams == nil || cfg.Persons == nil {
		return nil, errMissingRepos
	}
	if cfg.Gateway == nil {
		return nil, errors.New("syncer: gateway client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Syncer{
		queue:        cfg.Outbox,
		players:      cfg.Players,
		matches:      cfg.Matches,
		observations: cfg.Observations,
		invitations:  cfg.Invitations,
		dictionaries: cfg.Dictionaries,
		clubs:        cfg.Clubs,
		teams:        cfg.Teams,
		persons:      cfg.Persons,
		gateway:      cfg.Gateway,
		logger:       cfg.Logger,
	}, nil
}

// Flush replays every queued operation once. Succeeded operations are removed
// from the queue; failed ones stay with the error recorded.
func (s *Syncer) Flush(ctx context.Context) outbox.FlushResult {
	result := s.queue.Flush(ctx, s.replay)
	s.logger.Info("outbox flush finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result
}

func (s *Syncer) replay(ctx context.Context, op outbox.Operation) error {
	switch {
	case op.Entity == outbox.EntityPlayers && op.Op == outbox.OperationCreate:
		return s.replayPlayerCreate(ctx, op)
	case op.Entity == outbox.EntityPlayers && op.Op == outbox.OperationUpdate:
		return s.replayPlayerUpdate(ctx, op)
	case op.Entity == outbox.EntityMatches && op.Op == outbox.OperationCreate:
		return s.replayMatchCreate(ctx, op)
	case op.Entity == outbox.EntityObservations && op.Op == outbox.OperationCreate:
		return s.replayObservationCreate(ctx, op)
	case op.Entity == outbox.EntityInvitations && op.Op == outbox.OperationCreate:
		return s.replayInvitationCreate(ctx, op)
	case op.Entity == outbox.EntityClubs && op.Op == outbox.OperationCreate:
		return s.replayClubCreate(ctx, op)
	case op.Entity == outbox.EntityTeams && op.Op == outbox.OperationCreate:
		return s.replayTeamCreate(ctx, op)
	case op.Entity == outbox.EntityPersons && op.Op == outbox.OperationCreate:
		return s.replayPersonCreate(ctx, op)
	default:
		return fmt.Errorf("syncer: no replay for %s %s", op.Op, op.Entity)
	}
}

func (s *Syncer) replayPlayerCreate(ctx context.Context, op outbox.Operation) error {
	var payload repo.CreatePayload[model.CreatePlayerInput]
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("syncer: decode player create payload: %w", err)
	}
	created, err := s.gateway.CreatePlayer(ctx, payload.Input)
	if err != nil {
		return err
	}
	created.CreatedByUserID = payload.CreatedByUserID
	return s.players.ConfirmCreate(payload.LocalID, created)
}

func (s *Syncer) replayPlayerUpdate(ctx context.Context, op outbox.Operation) error {
	var payload repo.UpdatePayload[model.UpdatePlayerInput]
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("syncer: decode player update payload: %w", err)
	}
	updated, err := s.gateway.UpdatePlayer(ctx, payload.ID, payload.Patch)
	if err != nil {
		return err
	}
	return s.players.ConfirmUpdate(updated)
}

func (s *Syncer) replayMatchCreate(ctx context.Context, op outbox.Operation) error {
	var payload repo.CreatePayload[model.CreateMatchInput]
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("syncer: decode match create payload: %w", err)
	}
	created, err := s.gateway.CreateMatch(ctx, payload.Input)
	if err != nil {
		return err
	}
	created.CreatedByUserID = payload.CreatedByUserID
	return s.matches.ConfirmCreate(payload.LocalID, created)
}

// replayObservationCreate additionally flags the local record when the server
// rejects the payload outright: a validation failure will never clear on
// retry, so readers need to see it.
func (s *Syncer) replayObservationCreate(ctx context.Context, op outbox.Operation) error {
	var payload repo.CreatePayload[model.CreateObservationInput]
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("syncer: decode observation create payload: %w", err)
	}
	input := payload.Input
	input.CreatedOffline = false
	input.SyncStatus = model.SyncStatusSynced

	created, err := s.gateway.CreateObservation(ctx, input)
	if err != nil {
		if gateway.IsValidation(err) {
			if markErr := s.observations.MarkSyncError(payload.LocalID); markErr != nil {
				s.logger.Warn("observation sync error mark failed",
					zap.String("local_id", payload.LocalID), zap.Error(markErr))
			}
		}
		return err
	}
	created.CreatedByUserID = payload.CreatedByUserID
	return s.observations.ConfirmCreate(payload.LocalID, created)
}

func (s *Syncer) replayInvitationCreate(ctx context.Context, op outbox.Operation) error {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(op.Payload, &probe); err != nil {
		return fmt.Errorf("syncer: decode invitation payload: %w", err)
	}
	if probe.Kind == repo.InvitationKindFreeform {
		return ErrFreeformPending
	}
	var payload repo.CreatePayload[model.CreateInvitationInput]
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("syncer: decode invitation create payload: %w", err)
	}
	created, err := s.gateway.CreateInvitation(ctx, payload.Input)
	if err != nil {
		return err
	}
	created.Origin = model.OriginRemote
	created.CreatedByUserID = payload.CreatedByUserID
	return s.invitations.ConfirmCreate(payload.LocalID, created)
}

func (s *Syncer) replayClubCreate(ctx context.Context, op outbox.Operation) error {
	var payload repo.CreatePayload[model.CreateClubInput]
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("syncer: decode club create payload: %w", err)
	}
	created, err := s.gateway.CreateClub(ctx, payload.Input)
	if err != nil {
		return err
	}
	created.CreatedByUserID = payload.CreatedByUserID
	return s.clubs.ConfirmCreate(payload.LocalID, created)
}

func (s *Syncer) replayTeamCreate(ctx context.Context, op outbox.Operation) error {
	var payload repo.CreatePayload[model.CreateTeamInput]
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("syncer: decode team create payload: %w", err)
	}
	created, err := s.gateway.CreateTeam(ctx, payload.Input)
	if err != nil {
		return err
	}
	created.CreatedByUserID = payload.CreatedByUserID
	return s.teams.ConfirmCreate(payload.LocalID, created)
}

func (s *Syncer) replayPersonCreate(ctx context.Context, op outbox.Operation) error {
	var payload repo.CreatePayload[model.CreatePersonInput]
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("syncer: decode person create payload: %w", err)
	}
	created, err := s.gateway.CreatePerson(ctx, payload.Input)
	if err != nil {
		return err
	}
	created.CreatedByUserID = payload.CreatedByUserID
	return s.persons.ConfirmCreate(payload.LocalID, created)
}

// RefreshAll pulls a fresh snapshot into every table. One failing table never
// stops the rest; the returned map holds the error message per table that
// failed, empty when everything refreshed.
func (s *Syncer) RefreshAll(ctx context.Context) map[string]string {
	failures := make(map[string]string)
	record := func(table string, err error) {
		if err != nil {
			s.logger.Warn("table refresh failed", zap.String("table", table), zap.Error(err))
			failures[table] = err.Error()
		}
	}
	record("dictionaries", s.dictionaries.RefreshFromRemote(ctx, ""))
	record("clubs", s.clubs.RefreshFromRemote(ctx))
	record("teams", s.teams.RefreshFromRemote(ctx, ""))
	record("persons", s.persons.RefreshFromRemote(ctx, ""))
	record("players", s.players.RefreshFromRemote(ctx))
	record("matches", s.matches.RefreshFromRemote(ctx))
	record("observations", s.observations.RefreshFromRemote(ctx, ""))
	record("invitations", s.invitations.RefreshFromRemote(ctx, ""))
	return failures
}
