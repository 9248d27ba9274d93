package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pbaranSii/TalentTrack/internal/model"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
)

func newObservationsRepo(t *testing.T, handler http.HandlerFunc) (*Observations, *outbox.Queue) {
	t.Helper()
	cfg, queue := newTestConfig(t, handler)
	observations, err := NewObservations(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return observations, queue
}

func TestObservationOfflineCreateIsMarkedLocal(t *testing.T) {
	observations, queue := newObservationsRepo(t, nil)

	created, err := observations.CreateLocalFirst(context.Background(), model.CreateObservationInput{
		PlayerID:        "player_srv_1",
		ObservationDate: "2026-08-01",
		ObservationType: model.ObservationTypeLive,
	}, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created.CreatedOffline {
		t.Fatalf("expected the offline flag to be set")
	}
	if created.SyncStatus != model.SyncStatusLocal {
		t.Fatalf("expected LOCAL sync status, got %s", created.SyncStatus)
	}
	if got := len(queue.List()); got != 1 {
		t.Fatalf("expected 1 queued operation, got %d", got)
	}
}

func TestObservationOnlineCreateSendsSyncedInput(t *testing.T) {
	observations, queue := newObservationsRepo(t, func(w http.ResponseWriter, r *http.Request) {
		var input model.CreateObservationInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if input.CreatedOffline {
			t.Fatalf("immediate remote create must not claim offline origin")
		}
		if input.SyncStatus != model.SyncStatusSynced {
			t.Fatalf("expected SYNCED input status, got %s", input.SyncStatus)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Observation{
			ID:         "obs_srv_7",
			PlayerID:   input.PlayerID,
			SyncStatus: model.SyncStatusSynced,
		})
	})

	created, err := observations.CreateLocalFirst(context.Background(), model.CreateObservationInput{
		PlayerID:        "player_srv_1",
		ObservationDate: "2026-08-01",
		ObservationType: model.ObservationTypeLive,
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "obs_srv_7" {
		t.Fatalf("expected the server record, got %+v", created)
	}
	if got := len(queue.List()); got != 0 {
		t.Fatalf("expected the queue to be drained, got %d", got)
	}
}

func TestObservationRefreshScopedToPlayerKeepsOtherPlayers(t *testing.T) {
	observations, _ := newObservationsRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("playerId"); got != "player_srv_1" {
			t.Fatalf("unexpected playerId: %q", got)
		}
		json.NewEncoder(w).Encode([]model.Observation{
			{ID: "obs_srv_1", PlayerID: "player_srv_1", ObservationDate: "2026-08-02"},
		})
	})

	if err := observations.SetAllLocal([]model.Observation{
		{ID: "obs_srv_1", PlayerID: "player_srv_1", ObservationDate: "2026-07-01"},
		{ID: "obs_srv_9", PlayerID: "player_srv_2", ObservationDate: "2026-07-15"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := observations.RefreshFromRemote(context.Background(), "player_srv_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := observations.GetAllLocal()
	if len(all) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(all))
	}
	inScope := observations.GetByPlayerIDLocal("player_srv_1")
	if len(inScope) != 1 || inScope[0].ObservationDate != "2026-08-02" {
		t.Fatalf("expected the remote snapshot to replace the in-scope record, got %+v", inScope)
	}
	outOfScope := observations.GetByPlayerIDLocal("player_srv_2")
	if len(outOfScope) != 1 {
		t.Fatalf("expected the out-of-scope record to survive, got %+v", outOfScope)
	}
}

func TestMarkSyncErrorFlagsRecord(t *testing.T) {
	observations, _ := newObservationsRepo(t, nil)

	if err := observations.SetAllLocal([]model.Observation{
		{ID: "obs_local_1", PlayerID: "player_srv_1", SyncStatus: model.SyncStatusLocal},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := observations.MarkSyncError("obs_local_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := observations.GetAllLocal()
	if len(all) != 1 || all[0].SyncStatus != model.SyncStatusError {
		t.Fatalf("expected ERROR sync status, got %+v", all)
	}
}

func TestObservationsSortNewestFirst(t *testing.T) {
	observations, _ := newObservationsRepo(t, nil)

	if err := observations.SetAllLocal([]model.Observation{
		{ID: "obs_1", PlayerID: "p", ObservationDate: "2026-06-01"},
		{ID: "obs_2", PlayerID: "p", ObservationDate: "2026-08-01"},
		{ID: "obs_3", PlayerID: "p", ObservationDate: "2026-07-01"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := observations.GetAllLocal()
	if all[0].ID != "obs_2" || all[1].ID != "obs_3" || all[2].ID != "obs_1" {
		t.Fatalf("unexpected order: %s %s %s", all[0].ID, all[1].ID, all[2].ID)
	}
}
