package repo

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pbaranSii/TalentTrack/internal/gateway"
	"github.com/pbaranSii/TalentTrack/internal/localdb"
	"github.com/pbaranSii/TalentTrack/internal/model"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
	"github.com/pbaranSii/TalentTrack/internal/storage"
)

type stubLocalIDs struct {
	next int
}

func (s *stubLocalIDs) NewLocalID(prefix string) (string, error) {
	s.next++
	return fmt.Sprintf("%s_local_%d", prefix, s.next), nil
}

type stubOpIDs struct {
	next int
}

func (s *stubOpIDs) NewID() (string, error) {
	s.next++
	return fmt.Sprintf("op-%d", s.next), nil
}

// newTestConfig wires a repository config against an httptest server. Pass a
// nil handler for an unreachable remote.
func newTestConfig(t *testing.T, handler http.HandlerFunc) (Config, *outbox.Queue) {
	t.Helper()

	slots := storage.NewMemorySlots()
	clock := func() time.Time { return time.Unix(1700000000, 0).UTC() }

	store, err := localdb.NewStore(localdb.StoreConfig{Slots: slots, Clock: clock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	queue, err := outbox.NewQueue(outbox.QueueConfig{
		Slots:      slots,
		Clock:      clock,
		IDProvider: &stubOpIDs{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var baseURL string
	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		baseURL = server.URL
	} else {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()
		baseURL = server.URL
	}

	client, err := gateway.NewClient(gateway.ClientConfig{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return Config{
		Store:      store,
		Outbox:     queue,
		Gateway:    client,
		Clock:      clock,
		IDProvider: &stubLocalIDs{},
	}, queue
}

func TestCompareTextOrdersPolishLetters(t *testing.T) {
	if compareText("Ćwik", "Dąbrowski") >= 0 {
		t.Fatalf("expected Ćwik to sort before Dąbrowski")
	}
	if compareText("Łukasik", "Mazur") >= 0 {
		t.Fatalf("expected Łukasik to sort before Mazur")
	}
	if compareText("kowalski", "KOWALSKI") != 0 {
		t.Fatalf("expected case-insensitive equality")
	}
}

func TestUpsertRecordIsIdempotent(t *testing.T) {
	item := model.Club{ID: "club_1", Name: "Lech"}
	list := upsertRecord(nil, item, lessClubs)
	list = upsertRecord(list, item, lessClubs)
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}

	renamed := model.Club{ID: "club_1", Name: "Lech Poznań"}
	list = upsertRecord(list, renamed, lessClubs)
	if len(list) != 1 || list[0].Name != "Lech Poznań" {
		t.Fatalf("expected in-place replacement, got %+v", list)
	}
}

func TestMergeSnapshotPreservesKeptRecords(t *testing.T) {
	current := []model.Club{
		{ID: "club_local_1", Name: "Warta"},
		{ID: "club_srv_1", Name: "Lech"},
	}
	remote := []model.Club{
		{ID: "club_srv_1", Name: "Lech Poznań"},
		{ID: "club_srv_2", Name: "Pogoń"},
	}

	merged := mergeSnapshot(current, remote, func(c model.Club) bool {
		return c.ID == "club_local_1"
	}, lessClubs)

	if len(merged) != 3 {
		t.Fatalf("expected 3 records, got %d", len(merged))
	}
	byID := make(map[string]model.Club, len(merged))
	for _, club := range merged {
		byID[club.ID] = club
	}
	if _, ok := byID["club_local_1"]; !ok {
		t.Fatalf("expected the kept local record to survive")
	}
	if byID["club_srv_1"].Name != "Lech Poznań" {
		t.Fatalf("expected the remote record to win, got %+v", byID["club_srv_1"])
	}
}

func TestPendingIDsReadsQueuedPayloads(t *testing.T) {
	_, queue := newTestConfig(t, nil)

	if _, err := queue.Enqueue(outbox.EntityPlayers, outbox.OperationCreate,
		CreatePayload[model.CreatePlayerInput]{LocalID: "player_local_9"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := queue.Enqueue(outbox.EntityPlayers, outbox.OperationUpdate,
		UpdatePayload[model.UpdatePlayerInput]{ID: "player_srv_3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := queue.Enqueue(outbox.EntityClubs, outbox.OperationCreate,
		CreatePayload[model.CreateClubInput]{LocalID: "club_local_1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := pendingIDs(queue, outbox.EntityPlayers)
	if len(ids) != 2 {
		t.Fatalf("expected 2 pending ids, got %v", ids)
	}
	if _, ok := ids["player_local_9"]; !ok {
		t.Fatalf("expected the create local id to be pending")
	}
	if _, ok := ids["player_srv_3"]; !ok {
		t.Fatalf("expected the update target id to be pending")
	}
}
