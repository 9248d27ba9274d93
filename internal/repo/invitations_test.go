package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pbaranSii/TalentTrack/internal/model"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
)

func newInvitationsRepo(t *testing.T, handler http.HandlerFunc) (*Invitations, *outbox.Queue) {
	t.Helper()
	cfg, queue := newTestConfig(t, handler)
	invitations, err := NewInvitations(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return invitations, queue
}

func TestInvitationOfflineCreateCarriesLocalOrigin(t *testing.T) {
	invitations, queue := newInvitationsRepo(t, nil)

	created, err := invitations.CreateLocalFirst(context.Background(), model.CreateInvitationInput{
		PlayerID:       "player_srv_1",
		InvitationDate: "2026-08-10",
		Status:         model.InvitationStatusSent,
	}, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Origin != model.OriginLocal {
		t.Fatalf("expected LOCAL origin, got %s", created.Origin)
	}

	ops := queue.List()
	if len(ops) != 1 {
		t.Fatalf("expected 1 queued operation, got %d", len(ops))
	}
	var payload CreatePayload[model.CreateInvitationInput]
	if err := json.Unmarshal(ops[0].Payload, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Kind != InvitationKindExistingPlayer {
		t.Fatalf("expected existing-player kind, got %q", payload.Kind)
	}
}

func TestInvitationOnlineCreateSwapsToRemoteOrigin(t *testing.T) {
	invitations, queue := newInvitationsRepo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Invitation{
			ID:             "inv_srv_5",
			InvitationDate: "2026-08-10",
			Status:         model.InvitationStatusSent,
		})
	})

	created, err := invitations.CreateLocalFirst(context.Background(), model.CreateInvitationInput{
		PlayerID:       "player_srv_1",
		InvitationDate: "2026-08-10",
		Status:         model.InvitationStatusSent,
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "inv_srv_5" || created.Origin != model.OriginRemote {
		t.Fatalf("expected a remote-confirmed invitation, got %+v", created)
	}
	if got := len(queue.List()); got != 0 {
		t.Fatalf("expected the queue to be drained, got %d", got)
	}
}

func TestFreeformInvitationNeverAttemptsRemoteCreate(t *testing.T) {
	invitations, queue := newInvitationsRepo(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no remote call expected, got %s %s", r.Method, r.URL.Path)
	})

	created, err := invitations.CreateFreeformLocalFirst(model.CreateFreeformInvitationInput{
		InvitationDate:  "2026-08-10",
		Status:          model.InvitationStatusSent,
		PlayerFirstName: "Tomasz",
		PlayerLastName:  "Wójcik",
	}, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Origin != model.OriginLocal {
		t.Fatalf("expected LOCAL origin, got %s", created.Origin)
	}
	if created.PlayerFirstName == nil || *created.PlayerFirstName != "Tomasz" {
		t.Fatalf("expected the player snapshot to be kept, got %+v", created)
	}

	ops := queue.List()
	if len(ops) != 1 {
		t.Fatalf("expected 1 queued operation, got %d", len(ops))
	}
	var payload CreatePayload[model.CreateFreeformInvitationInput]
	if err := json.Unmarshal(ops[0].Payload, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Kind != InvitationKindFreeform {
		t.Fatalf("expected freeform kind, got %q", payload.Kind)
	}
}

func TestInvitationRefreshKeepsLocalOriginRecords(t *testing.T) {
	invitations, _ := newInvitationsRepo(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Invitation{
			{ID: "inv_srv_1", InvitationDate: "2026-08-01", Origin: model.OriginRemote},
		})
	})

	if err := invitations.SetAllLocal([]model.Invitation{
		{ID: "inv_local_1", InvitationDate: "2026-08-05", Origin: model.OriginLocal},
		{ID: "inv_srv_9", InvitationDate: "2026-07-01", Origin: model.OriginRemote},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := invitations.RefreshFromRemote(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := invitations.GetAllLocal()
	if len(all) != 2 {
		t.Fatalf("expected the local record plus the snapshot, got %+v", all)
	}
	byID := make(map[string]model.Invitation, len(all))
	for _, inv := range all {
		byID[inv.ID] = inv
	}
	if _, ok := byID["inv_local_1"]; !ok {
		t.Fatalf("expected the LOCAL origin record to survive")
	}
	if _, ok := byID["inv_srv_9"]; ok {
		t.Fatalf("expected the stale remote record to be dropped")
	}
}
