// Package gateway implements the REST client for the scouting API. Every
// method performs exactly one network call; the repositories treat any
// returned error as "offline" and fall back to local state.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/model"
)

var (
	errMissingBaseURL = errors.New("gateway: base URL is required")

	// ErrUnreachable wraps transport-level failures: the server could not be
	// reached at all, as opposed to answering with an error status.
	ErrUnreachable = errors.New("gateway: server unreachable")
)

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.StatusCode, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsValidation reports whether err is a 4xx response other than 404, i.e. a
// rejection that will not succeed on retry with the same payload.
func IsValidation(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusNotFound
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client performs the actual network requests against the scouting API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Client with the provided configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

type errorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Debug("gateway request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: response.StatusCode, Message: strings.TrimSpace(string(payload))}
		var decoded errorBody
		if json.Unmarshal(payload, &decoded) == nil && decoded.Message != "" {
			apiErr.Message = decoded.Message
			apiErr.Errors = decoded.Errors
		}
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("server error %d", response.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func (c *Client) list(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// ListPlayers fetches all players.
func (c *Client) ListPlayers(ctx context.Context) ([]model.Player, error) {
	var players []model.Player
	if err := c.list(ctx, "/players", nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// GetPlayer fetches a single player by id.
func (c *Client) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	var player model.Player
	if err := c.list(ctx, "/players/"+url.PathEscape(id), nil, &player); err != nil {
		return model.Player{}, err
	}
	return player, nil
}

// CreatePlayer creates a player remotely.
func (c *Client) CreatePlayer(ctx context.Context, input model.CreatePlayerInput) (model.Player, error) {
	var player model.Player
	if err := c.do(ctx, http.MethodPost, "/players", nil, input, &player); err != nil {
		return model.Player{}, err
	}
	return player, nil
}

// UpdatePlayer patches a player remotely.
func (c *Client) UpdatePlayer(ctx context.Context, id string, patch model.UpdatePlayerInput) (model.Player, error) {
	var player model.Player
	if err := c.do(ctx, http.MethodPatch, "/players/"+url.PathEscape(id), nil, patch, &player); err != nil {
		return model.Player{}, err
	}
	return player, nil
}

// ListMatches fetches all matches.
func (c *Client) ListMatches(ctx context.Context) ([]model.Match, error) {
	var matches []model.Match
	if err := c.list(ctx, "/matches", nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// CreateMatch creates a match remotely.
func (c *Client) CreateMatch(ctx context.Context, input model.CreateMatchInput) (model.Match, error) {
	var match model.Match
	if err := c.do(ctx, http.MethodPost, "/matches", nil, input, &match); err != nil {
		return model.Match{}, err
	}
	return match, nil
}

// ListObservations fetches observations, optionally scoped to one player.
func (c *Client) ListObservations(ctx context.Context, playerID string) ([]model.Observation, error) {
	query := url.Values{}
	if playerID != "" {
		query.Set("playerId", playerID)
	}
	var observations []model.Observation
	if err := c.list(ctx, "/observations", query, &observations); err != nil {
		return nil, err
	}
	return observations, nil
}

// CreateObservation creates an observation remotely.
func (c *Client) CreateObservation(ctx context.Context, input model.CreateObservationInput) (model.Observation, error) {
	var observation model.Observation
	if err := c.do(ctx, http.MethodPost, "/observations", nil, input, &observation); err != nil {
		return model.Observation{}, err
	}
	return observation, nil
}

// ListInvitations fetches invitations, optionally scoped to one player.
func (c *Client) ListInvitations(ctx context.Context, playerID string) ([]model.Invitation, error) {
	query := url.Values{}
	if playerID != "" {
		query.Set("playerId", playerID)
	}
	var invitations []model.Invitation
	if err := c.list(ctx, "/invitations", query, &invitations); err != nil {
		return nil, err
	}
	return invitations, nil
}

// CreateInvitation creates an invitation linked to an existing player.
func (c *Client) CreateInvitation(ctx context.Context, input model.CreateInvitationInput) (model.Invitation, error) {
	var invitation model.Invitation
	if err := c.do(ctx, http.MethodPost, "/invitations", nil, input, &invitation); err != nil {
		return model.Invitation{}, err
	}
	return invitation, nil
}

// ListDictionaries fetches dictionaries, optionally scoped to one type.
func (c *Client) ListDictionaries(ctx context.Context, dictType model.DictionaryType) ([]model.Dictionary, error) {
	query := url.Values{}
	if dictType != "" {
		query.Set("type", string(dictType))
	}
	var dictionaries []model.Dictionary
	if err := c.list(ctx, "/dictionaries", query, &dictionaries); err != nil {
		return nil, err
	}
	return dictionaries, nil
}

// ListClubs fetches all clubs.
func (c *Client) ListClubs(ctx context.Context) ([]model.Club, error) {
	var clubs []model.Club
	if err := c.list(ctx, "/clubs", nil, &clubs); err != nil {
		return nil, err
	}
	return clubs, nil
}

// CreateClub creates a club remotely.
func (c *Client) CreateClub(ctx context.Context, input model.CreateClubInput) (model.Club, error) {
	var club model.Club
	if err := c.do(ctx, http.MethodPost, "/clubs", nil, input, &club); err != nil {
		return model.Club{}, err
	}
	return club, nil
}

// ListTeams fetches teams, optionally scoped to one club.
func (c *Client) ListTeams(ctx context.Context, clubID string) ([]model.Team, error) {
	query := url.Values{}
	if clubID != "" {
		query.Set("clubId", clubID)
	}
	var teams []model.Team
	if err := c.list(ctx, "/teams", query, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// CreateTeam creates a team remotely.
func (c *Client) CreateTeam(ctx context.Context, input model.CreateTeamInput) (model.Team, error) {
	var team model.Team
	if err := c.do(ctx, http.MethodPost, "/teams", nil, input, &team); err != nil {
		return model.Team{}, err
	}
	return team, nil
}

// ListPersons fetches persons, optionally scoped to one type.
func (c *Client) ListPersons(ctx context.Context, personType model.PersonType) ([]model.Person, error) {
	query := url.Values{}
	if personType != "" {
		query.Set("type", string(personType))
	}
	var persons []model.Person
	if err := c.list(ctx, "/persons", query, &persons); err != nil {
		return nil, err
	}
	return persons, nil
}

// CreatePerson creates a person remotely.
func (c *Client) CreatePerson(ctx context.Context, input model.CreatePersonInput) (model.Person, error) {
	var person model.Person
	if err := c.do(ctx, http.MethodPost, "/persons", nil, input, &person); err != nil {
		return model.Person{}, err
	}
	return person, nil
}
