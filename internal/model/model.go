// Package model defines the entity records exchanged with the scouting API
// and held in the local store. Field names and JSON tags follow the wire
// contract exactly; optional fields are pointers so that absent and zero
// values stay distinguishable.
package model

// Origin states whether a record's current identity has been confirmed by the
// remote system (REMOTE) or exists only locally (LOCAL).
type Origin string

const (
	OriginLocal  Origin = "LOCAL"
	OriginRemote Origin = "REMOTE"
)

// DictionaryType enumerates the dictionary tables used by forms.
type DictionaryType string

const (
	DictionaryTypePosition      DictionaryType = "POSITION"
	DictionaryTypeFoot          DictionaryType = "FOOT"
	DictionaryTypeSource        DictionaryType = "SOURCE"
	DictionaryTypeMatchCategory DictionaryType = "MATCH_CATEGORY"
	DictionaryTypeLeagueRank    DictionaryType = "LEAGUE_RANK"
)

// Dictionary is a reference value used to populate selects.
type Dictionary struct {
	ID        string         `json:"id"`
	Type      DictionaryType `json:"type"`
	Value     string         `json:"value"`
	SortOrder int            `json:"sortOrder"`
	IsActive  bool           `json:"isActive"`
}

// RecordID returns the record identifier.
func (d Dictionary) RecordID() string { return d.ID }

// Player is a scouted player.
type Player struct {
	ID              string  `json:"id"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	BirthYear       *int    `json:"birthYear,omitempty"`
	BirthDate       *string `json:"birthDate,omitempty"`
	DominantFootID  string  `json:"dominantFootId"`
	MainPositionID  string  `json:"mainPositionId"`
	ClubID          *string `json:"clubId,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
	CreatedByUserID string  `json:"createdByUserId,omitempty"`
}

// RecordID returns the record identifier.
func (p Player) RecordID() string { return p.ID }

// CreatePlayerInput carries the fields required to create a player.
type CreatePlayerInput struct {
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	BirthYear      *int    `json:"birthYear,omitempty"`
	BirthDate      *string `json:"birthDate,omitempty"`
	DominantFootID string  `json:"dominantFootId"`
	MainPositionID string  `json:"mainPositionId"`
	ClubID         *string `json:"clubId,omitempty"`
}

// UpdatePlayerInput is a partial patch; nil fields are left unchanged.
type UpdatePlayerInput struct {
	FirstName      *string `json:"firstName,omitempty"`
	LastName       *string `json:"lastName,omitempty"`
	BirthYear      *int    `json:"birthYear,omitempty"`
	BirthDate      *string `json:"birthDate,omitempty"`
	DominantFootID *string `json:"dominantFootId,omitempty"`
	MainPositionID *string `json:"mainPositionId,omitempty"`
	ClubID         *string `json:"clubId,omitempty"`
}

// MatchType distinguishes live attendance from video review.
type MatchType string

const (
	MatchTypeLive  MatchType = "LIVE"
	MatchTypeVideo MatchType = "VIDEO"
)

// Match is an observed or scheduled match.
type Match struct {
	ID              string    `json:"id"`
	MatchType       MatchType `json:"matchType"`
	Date            string    `json:"date"`
	Month           *int      `json:"month,omitempty"`
	Location        string    `json:"location"`
	TeamHome        string    `json:"teamHome"`
	TeamAway        string    `json:"teamAway"`
	CategoryID      *string   `json:"categoryId,omitempty"`
	LeagueRankID    *string   `json:"leagueRankId,omitempty"`
	Result          *string   `json:"result,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       string    `json:"createdAt,omitempty"`
	UpdatedAt       string    `json:"updatedAt,omitempty"`
	CreatedByUserID string    `json:"createdByUserId,omitempty"`
}

// RecordID returns the record identifier.
func (m Match) RecordID() string { return m.ID }

// CreateMatchInput carries the fields required to create a match.
type CreateMatchInput struct {
	MatchType    MatchType `json:"matchType"`
	Date         string    `json:"date"`
	Month        *int      `json:"month,omitempty"`
	Location     string    `json:"location"`
	TeamHome     string    `json:"teamHome"`
	TeamAway     string    `json:"teamAway"`
	CategoryID   *string   `json:"categoryId,omitempty"`
	LeagueRankID *string   `json:"leagueRankId,omitempty"`
	Result       *string   `json:"result,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
}

// ObservationType enumerates how an observation was sourced.
type ObservationType string

const (
	ObservationTypeLive  ObservationType = "LIVE"
	ObservationTypeVideo ObservationType = "VIDEO"
	ObservationTypeScout ObservationType = "SCOUT"
	ObservationTypeCoach ObservationType = "COACH"
)

// PotentialGrade is the scout's overall potential assessment.
type PotentialGrade string

const (
	PotentialGradeA PotentialGrade = "A"
	PotentialGradeB PotentialGrade = "B"
	PotentialGradeC PotentialGrade = "C"
	PotentialGradeD PotentialGrade = "D"
)

// SyncStatus tracks whether an observation has been confirmed server-side.
type SyncStatus string

const (
	SyncStatusLocal  SyncStatus = "LOCAL"
	SyncStatusSynced SyncStatus = "SYNCED"
	SyncStatusError  SyncStatus = "ERROR"
)

// Observation is a single scouting observation of a player.
type Observation struct {
	ID              string          `json:"id"`
	PlayerID        string          `json:"playerId"`
	ObservationDate string          `json:"observationDate"`
	ObservationType ObservationType `json:"observationType"`
	SourceID        *string         `json:"sourceId,omitempty"`
	MatchID         *string         `json:"matchId,omitempty"`
	TeamContext     *string         `json:"teamContext,omitempty"`
	PotentialGrade  *PotentialGrade `json:"potentialGrade,omitempty"`
	PotentialNow    *int            `json:"potentialNow,omitempty"`
	PotentialFuture *int            `json:"potentialFuture,omitempty"`
	Comment         *string         `json:"comment,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	ScoutID         *string         `json:"scoutId,omitempty"`
	CreatedOffline  bool            `json:"createdOffline"`
	SyncStatus      SyncStatus      `json:"syncStatus"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
	CreatedByUserID string          `json:"createdByUserId,omitempty"`
}

// RecordID returns the record identifier.
func (o Observation) RecordID() string { return o.ID }

// CreateObservationInput carries the fields required to create an observation.
type CreateObservationInput struct {
	PlayerID        string          `json:"playerId"`
	ObservationDate string          `json:"observationDate"`
	ObservationType ObservationType `json:"observationType"`
	SourceID        *string         `json:"sourceId,omitempty"`
	MatchID         *string         `json:"matchId,omitempty"`
	TeamContext     *string         `json:"teamContext,omitempty"`
	PotentialGrade  *PotentialGrade `json:"potentialGrade,omitempty"`
	PotentialNow    *int            `json:"potentialNow,omitempty"`
	PotentialFuture *int            `json:"potentialFuture,omitempty"`
	Comment         *string         `json:"comment,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	ScoutID         *string         `json:"scoutId,omitempty"`
	CreatedOffline  bool            `json:"createdOffline"`
	SyncStatus      SyncStatus      `json:"syncStatus,omitempty"`
}

// InvitationStatus tracks the lifecycle of a trial invitation.
type InvitationStatus string

const (
	InvitationStatusSent       InvitationStatus = "SENT"
	InvitationStatusAccepted   InvitationStatus = "ACCEPTED"
	InvitationStatusDeclined   InvitationStatus = "DECLINED"
	InvitationStatusNoResponse InvitationStatus = "NO_RESPONSE"
)

// Invitation is a trial invitation, either linked to an existing player or
// carrying a freeform player/parent snapshot for players not yet registered.
type Invitation struct {
	ID              string           `json:"id"`
	InvitationDate  string           `json:"invitationDate"`
	Month           *int             `json:"month,omitempty"`
	TeamID          *string          `json:"teamId,omitempty"`
	Status          InvitationStatus `json:"status"`
	Comment         *string          `json:"comment,omitempty"`
	CreatedAt       string           `json:"createdAt,omitempty"`
	UpdatedAt       string           `json:"updatedAt,omitempty"`
	CreatedByUserID string           `json:"createdByUserId,omitempty"`
	Origin          Origin           `json:"origin"`

	PlayerID *string `json:"playerId,omitempty"`

	PlayerFirstName      *string `json:"playerFirstName,omitempty"`
	PlayerLastName       *string `json:"playerLastName,omitempty"`
	PlayerBirthYear      *int    `json:"playerBirthYear,omitempty"`
	PlayerBirthDate      *string `json:"playerBirthDate,omitempty"`
	PlayerClubName       *string `json:"playerClubName,omitempty"`
	PlayerPositionID     *string `json:"playerPositionId,omitempty"`
	PlayerDominantFootID *string `json:"playerDominantFootId,omitempty"`

	ParentFirstName *string `json:"parentFirstName,omitempty"`
	ParentLastName  *string `json:"parentLastName,omitempty"`
	ParentPhone     *string `json:"parentPhone,omitempty"`
	ParentEmail     *string `json:"parentEmail,omitempty"`

	PlannedObservationDate *string `json:"plannedObservationDate,omitempty"`
	PlannedMatchDate       *string `json:"plannedMatchDate,omitempty"`
}

// RecordID returns the record identifier.
func (i Invitation) RecordID() string { return i.ID }

// CreateInvitationInput creates an invitation linked to an existing player.
type CreateInvitationInput struct {
	PlayerID       string           `json:"playerId"`
	InvitationDate string           `json:"invitationDate"`
	Month          *int             `json:"month,omitempty"`
	TeamID         *string          `json:"teamId,omitempty"`
	Status         InvitationStatus `json:"status"`
	Comment        *string          `json:"comment,omitempty"`
}

// CreateFreeformInvitationInput creates an invitation before the player exists.
type CreateFreeformInvitationInput struct {
	InvitationDate string           `json:"invitationDate"`
	Month          *int             `json:"month,omitempty"`
	TeamID         *string          `json:"teamId,omitempty"`
	Status         InvitationStatus `json:"status"`
	Comment        *string          `json:"comment,omitempty"`

	PlayerFirstName      string  `json:"playerFirstName"`
	PlayerLastName       string  `json:"playerLastName"`
	PlayerBirthYear      *int    `json:"playerBirthYear,omitempty"`
	PlayerBirthDate      *string `json:"playerBirthDate,omitempty"`
	PlayerClubName       *string `json:"playerClubName,omitempty"`
	PlayerPositionID     *string `json:"playerPositionId,omitempty"`
	PlayerDominantFootID *string `json:"playerDominantFootId,omitempty"`

	ParentFirstName *string `json:"parentFirstName,omitempty"`
	ParentLastName  *string `json:"parentLastName,omitempty"`
	ParentPhone     *string `json:"parentPhone,omitempty"`
	ParentEmail     *string `json:"parentEmail,omitempty"`

	PlannedObservationDate *string `json:"plannedObservationDate,omitempty"`
	PlannedMatchDate       *string `json:"plannedMatchDate,omitempty"`
}

// Club is a football club.
type Club struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
	CreatedByUserID string `json:"createdByUserId,omitempty"`
}

// RecordID returns the record identifier.
func (c Club) RecordID() string { return c.ID }

// CreateClubInput carries the fields required to create a club.
type CreateClubInput struct {
	Name string `json:"name"`
}

// Team is an age-group team within a club.
type Team struct {
	ID              string  `json:"id"`
	ClubID          string  `json:"clubId"`
	Name            string  `json:"name"`
	CategoryID      *string `json:"categoryId,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	UpdatedAt       string  `json:"updatedAt,omitempty"`
	CreatedByUserID string  `json:"createdByUserId,omitempty"`
}

// RecordID returns the record identifier.
func (t Team) RecordID() string { return t.ID }

// CreateTeamInput carries the fields required to create a team.
type CreateTeamInput struct {
	ClubID     string  `json:"clubId"`
	Name       string  `json:"name"`
	CategoryID *string `json:"categoryId,omitempty"`
}

// PersonType enumerates the roles a person can have around a player.
type PersonType string

const (
	PersonTypeParent PersonType = "PARENT"
	PersonTypeScout  PersonType = "SCOUT"
	PersonTypeCoach  PersonType = "COACH"
)

// Person is a parent, scout or coach.
type Person struct {
	ID              string     `json:"id"`
	PersonType      PersonType `json:"personType"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Phone           *string    `json:"phone,omitempty"`
	Email           *string    `json:"email,omitempty"`
	CreatedAt       string     `json:"createdAt,omitempty"`
	UpdatedAt       string     `json:"updatedAt,omitempty"`
	CreatedByUserID string     `json:"createdByUserId,omitempty"`
}

// RecordID returns the record identifier.
func (p Person) RecordID() string { return p.ID }

// CreatePersonInput carries the fields required to create a person.
type CreatePersonInput struct {
	PersonType PersonType `json:"personType"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Phone      *string    `json:"phone,omitempty"`
	Email      *string    `json:"email,omitempty"`
}
