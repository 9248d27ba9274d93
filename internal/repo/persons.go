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

// Persons is the local-first repository for parents, scouts and coaches.
type Persons struct {
	store   *localdb.Store
	outbox  *outbox.Queue
	gateway *gateway.Client
	clock   func() time.Time
	ids     LocalIDProvider
	logger  *zap.Logger
}

// NewPersons constructs a Persons repository.
func NewPersons(cfg Config) (*Persons, error) {
	cfg, err := cfg.prepare()
	if err != nil {
		return nil, err
	}
	return &Persons{
		store:   cfg.Store,
		outbox:  cfg.Outbox,
		gateway: cfg.Gateway,
		clock:   cfg.Clock,
		ids:     cfg.IDProvider,
		logger:  cfg.Logger,
	}, nil
}

func lessPersons(a, b model.Person) bool {
	if c := compareText(a.LastName, b.LastName); c != 0 {
		return c < 0
	}
	return compareText(a.FirstName, b.FirstName) < 0
}

// GetAllLocal returns all persons from the store ordered by last then first
// name.
func (r *Persons) GetAllLocal() []model.Person {
	list := decodeList[model.Person](r.store.GetTable(localdb.TablePersons), r.logger, localdb.TablePersons)
	return normalize(list, lessPersons)
}

// GetByTypeLocal returns the persons of one type.
func (r *Persons) GetByTypeLocal(personType model.PersonType) []model.Person {
	all := r.GetAllLocal()
	matched := make([]model.Person, 0, len(all))
	for _, person := range all {
		if person.PersonType == personType {
			matched = append(matched, person)
		}
	}
	return matched
}

// SetAllLocal normalizes and writes the full table back.
func (r *Persons) SetAllLocal(list []model.Person) error {
	return updateList(r.store, localdb.TablePersons, r.logger, lessPersons,
		func([]model.Person) []model.Person { return list })
}

// RefreshFromRemote fetches persons, optionally scoped to one type, and
// merges them into the store.
func (r *Persons) RefreshFromRemote(ctx context.Context, personType model.PersonType) error {
	remote, err := r.gateway.ListPersons(ctx, personType)
	if err != nil {
		return err
	}
	pending := pendingIDs(r.outbox, outbox.EntityPersons)
	return updateList(r.store, localdb.TablePersons, r.logger, lessPersons,
		func(current []model.Person) []model.Person {
			return mergeSnapshot(current, remote, func(p model.Person) bool {
				if _, ok := pending[p.ID]; ok {
					return true
				}
				return personType != "" && p.PersonType != personType
			}, lessPersons)
		})
}

// ConfirmCreate replaces the temporary local record with the server-assigned
// one as a single atomic swap.
func (r *Persons) ConfirmCreate(localID string, created model.Person) error {
	return updateList(r.store, localdb.TablePersons, r.logger, lessPersons,
		func(current []model.Person) []model.Person {
			return upsertRecord(removeRecord(current, localID), created, lessPersons)
		})
}

// CreateLocalFirst commits a new person locally, enqueues the outbox CREATE,
// then attempts the remote create.
func (r *Persons) CreateLocalFirst(ctx context.Context, input model.CreatePersonInput, createdByUserID string) (model.Person, error) {
	localID, err := r.ids.NewLocalID(PersonIDPrefix)
	if err != nil {
		return model.Person{}, err
	}
	now := nowISO(r.clock)
	local := model.Person{
		ID:              localID,
		PersonType:      input.PersonType,
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		Phone:           input.Phone,
		Email:           input.Email,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: createdByUserID,
	}

	err = updateList(r.store, localdb.TablePersons, r.logger, lessPersons,
		func(current []model.Person) []model.Person {
			return upsertRecord(current, local, lessPersons)
		})
	if err != nil {
		return model.Person{}, err
	}

	op, err := r.outbox.Enqueue(outbox.EntityPersons, outbox.OperationCreate,
		CreatePayload[model.CreatePersonInput]{Input: input, LocalID: localID, CreatedByUserID: createdByUserID})
	if err != nil {
		r.logger.Warn("person outbox enqueue failed", zap.String("local_id", localID), zap.Error(err))
		return local, nil
	}

	created, err := r.gateway.CreatePerson(ctx, input)
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
