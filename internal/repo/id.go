package repo

import "github.com/google/uuid"

// Local identifier prefixes, one per entity kind.
const (
	PlayerIDPrefix      = "player"
	MatchIDPrefix       = "match"
	ObservationIDPrefix = "obs"
	InvitationIDPrefix  = "inv"
	ClubIDPrefix        = "club"
	TeamIDPrefix        = "team"
	PersonIDPrefix      = "person"
)

// LocalIDProvider issues temporary client-side identifiers. The prefix names
// the entity kind; the suffix must be high-entropy so concurrent writers
// cannot collide.
type LocalIDProvider interface {
	NewLocalID(prefix string) (string, error)
}

type uuidLocalIDs struct{}

// NewLocalIDProvider constructs a LocalIDProvider backed by UUIDv7.
func NewLocalIDProvider() LocalIDProvider {
	return &uuidLocalIDs{}
}

func (p *uuidLocalIDs) NewLocalID(prefix string) (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return prefix + "_" + value.String(), nil
}
