package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/auth"
	"github.com/pbaranSii/TalentTrack/internal/gateway"
	"github.com/pbaranSii/TalentTrack/internal/localdb"
	"github.com/pbaranSii/TalentTrack/internal/model"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
	"github.com/pbaranSii/TalentTrack/internal/repo"
	"github.com/pbaranSii/TalentTrack/internal/server"
	"github.com/pbaranSii/TalentTrack/internal/storage"
	"github.com/pbaranSii/TalentTrack/internal/syncer"
)

const (
	sessionSigningSecret = "integration-secret"
	sessionCookieName    = "tt_session"
	sessionUserID        = "user-abc"
	jsonContentType      = "application/json"
)

type stack struct {
	handler http.Handler
	queue   *outbox.Queue
	players *repo.Players
	syncer  *syncer.Syncer
}

// buildStack assembles the whole client against a SQLite file and a stubbed
// remote whose availability is toggled through the online flag.
func buildStack(t *testing.T, databasePath string, online *atomic.Bool, remote http.HandlerFunc) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	remoteServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !online.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		remote(w, r)
	}))
	t.Cleanup(remoteServer.Close)

	db, err := storage.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
	})

	slots, err := storage.NewSQLiteSlots(db, time.Now)
	if err != nil {
		t.Fatalf("failed to build slots: %v", err)
	}
	store, err := localdb.NewStore(localdb.StoreConfig{Slots: slots})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	queue, err := outbox.NewQueue(outbox.QueueConfig{
		Slots:      slots,
		IDProvider: outbox.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build queue: %v", err)
	}
	client, err := gateway.NewClient(gateway.ClientConfig{BaseURL: remoteServer.URL})
	if err != nil {
		t.Fatalf("failed to build gateway: %v", err)
	}

	fail := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("failed to build repository: %v", err)
		}
	}
	cfg := repo.Config{Store: store, Outbox: queue, Gateway: client}
	players, err := repo.NewPlayers(cfg)
	fail(err)
	matches, err := repo.NewMatches(cfg)
	fail(err)
	observations, err := repo.NewObservations(cfg)
	fail(err)
	invitations, err := repo.NewInvitations(cfg)
	fail(err)
	dictionaries, err := repo.NewDictionaries(cfg)
	fail(err)
	clubs, err := repo.NewClubs(cfg)
	fail(err)
	teams, err := repo.NewTeams(cfg)
	fail(err)
	persons, err := repo.NewPersons(cfg)
	fail(err)

	sync, err := syncer.New(syncer.Config{
		Outbox:       queue,
		Players:      players,
		Matches:      matches,
		Observations: observations,
		Invitations:  invitations,
		Dictionaries: dictionaries,
		Clubs:        clubs,
		Teams:        teams,
		Persons:      persons,
		Gateway:      client,
	})
	if err != nil {
		t.Fatalf("failed to build syncer: %v", err)
	}

	sessions, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(sessionSigningSecret),
		CookieName:    sessionCookieName,
	})
	if err != nil {
		t.Fatalf("failed to construct session validator: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Store:        store,
		Outbox:       queue,
		Players:      players,
		Matches:      matches,
		Observations: observations,
		Invitations:  invitations,
		Dictionaries: dictionaries,
		Clubs:        clubs,
		Teams:        teams,
		Persons:      persons,
		Syncer:       sync,
		Sessions:     sessions,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return &stack{handler: handler, queue: queue, players: players, syncer: sync}
}

func mustMintSessionToken(t *testing.T, userID string) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.SessionClaims{
		UserID: userID,
		Role:   "SCOUT",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "talenttrack",
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(sessionSigningSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestOfflineCreateSurvivesRestartAndSyncs(t *testing.T) {
	databasePath := filepath.Join(t.TempDir(), "talenttrack.db")
	online := &atomic.Bool{}

	remote := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/players":
			var input model.CreatePlayerInput
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				t.Fatalf("failed to decode create: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(model.Player{
				ID:        "player_srv_100",
				FirstName: input.FirstName,
				LastName:  input.LastName,
			})
		case r.Method == http.MethodGet && r.URL.Path == "/players":
			json.NewEncoder(w).Encode([]model.Player{
				{ID: "player_srv_100", FirstName: "Jan", LastName: "Kowalski"},
			})
		default:
			json.NewEncoder(w).Encode([]json.RawMessage{})
		}
	}

	first := buildStack(t, databasePath, online, remote)
	testServer := httptest.NewServer(first.handler)

	sessionCookie := &http.Cookie{Name: sessionCookieName, Value: mustMintSessionToken(t, sessionUserID)}

	// Create while the backend is unreachable.
	body, _ := json.Marshal(model.CreatePlayerInput{FirstName: "Jan", LastName: "Kowalski"})
	createReq, _ := http.NewRequest(http.MethodPost, testServer.URL+"/api/players", bytes.NewReader(body))
	createReq.Header.Set("Content-Type", jsonContentType)
	createReq.AddCookie(sessionCookie)

	createResp, err := http.DefaultClient.Do(createReq)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", createResp.StatusCode)
	}
	var created model.Player
	if err := json.NewDecoder(createResp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if !strings.HasPrefix(created.ID, "player_") || strings.HasPrefix(created.ID, "player_srv") {
		t.Fatalf("expected a temporary local id, got %s", created.ID)
	}
	if created.CreatedByUserID != sessionUserID {
		t.Fatalf("expected the session user stamp, got %q", created.CreatedByUserID)
	}
	testServer.Close()

	// Simulate a restart: a fresh stack over the same database file.
	second := buildStack(t, databasePath, online, remote)
	if got := len(second.queue.List()); got != 1 {
		t.Fatalf("expected the queued create to survive restart, got %d", got)
	}
	locals := second.players.GetAllLocal()
	if len(locals) != 1 || locals[0].ID != created.ID {
		t.Fatalf("expected the local record to survive restart, got %+v", locals)
	}

	// Backend comes back; a flush reconciles the identity.
	online.Store(true)
	result := second.syncer.Flush(t.Context())
	if result.Succeeded != 1 {
		t.Fatalf("unexpected flush result: %+v", result)
	}
	if got := len(second.queue.List()); got != 0 {
		t.Fatalf("expected an empty queue after flush, got %d", got)
	}

	reconciled := second.players.GetAllLocal()
	if len(reconciled) != 1 || reconciled[0].ID != "player_srv_100" {
		t.Fatalf("expected the server identity only, got %+v", reconciled)
	}
	if reconciled[0].CreatedByUserID != sessionUserID {
		t.Fatalf("expected the creator stamp to survive reconciliation, got %+v", reconciled[0])
	}

	// A full refresh keeps the confirmed record.
	if failures := second.syncer.RefreshAll(t.Context()); len(failures) != 0 {
		t.Fatalf("unexpected refresh failures: %v", failures)
	}
	refreshed := second.players.GetAllLocal()
	if len(refreshed) != 1 || refreshed[0].ID != "player_srv_100" {
		t.Fatalf("expected the refreshed server record, got %+v", refreshed)
	}
}
