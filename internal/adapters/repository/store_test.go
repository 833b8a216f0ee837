package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
)

var playedAt = time.Date(2024, 5, 11, 19, 30, 0, 0, time.UTC)

// sampleRoster returns two players who met once, with a medal and partners.
func sampleRoster() model.Roster {
	r := make(model.Roster)
	a := r.Register("alice", 100)
	b := r.Register("bob", 100)
	a.Rating, a.PeakRating, a.Wins, a.Streak, a.AllTimeGain = 121, 121, 1, 1, 21
	b.Rating, b.PeakRating, b.Losses, b.AllTimeLoss = 84, 100, 1, 16
	a.HeadToHead["bob"] = model.Record{Wins: 1}
	b.HeadToHead["alice"] = model.Record{Losses: 1}
	a.Medals = []model.Medal{{Tier: model.Gold, Title: "Spring Open"}}
	a.Partners["carol"] = 2
	b.PartnerLosses["dave"] = 1
	a.History = []model.HistoryEntry{{
		Version: model.HistorySchemaVersion, MatchID: "m1", Result: model.Win,
		RatingAfter: 121, OpponentID: "bob", OpponentRatingAfter: 84,
		Score: 21, OpponentScore: 15, RecordedAt: playedAt,
	}}
	b.History = []model.HistoryEntry{{
		Version: model.HistorySchemaVersion, MatchID: "m1", Result: model.Loss,
		RatingAfter: 84, OpponentID: "alice", OpponentRatingAfter: 121,
		Score: 15, OpponentScore: 21, RecordedAt: playedAt,
	}}
	return r
}

func checkRoundTrip(t *testing.T, got model.Roster) {
	t.Helper()
	if diff := cmp.Diff(sampleRoster(), got); diff != "" {
		t.Errorf("roster changed across the store (-want +got):\n%s", diff)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 players, got %d", len(got))
	}
	a, b := got["alice"], got["bob"]
	if a.ID != "alice" || a.Rating != 121 || a.PeakRating != 121 || a.Wins != 1 || a.Streak != 1 || a.AllTimeGain != 21 {
		t.Errorf("alice scalars not preserved: %+v", a)
	}
	if b.Rating != 84 || b.PeakRating != 100 || b.Losses != 1 || b.AllTimeLoss != 16 {
		t.Errorf("bob scalars not preserved: %+v", b)
	}
	if a.HeadToHead["bob"] != (model.Record{Wins: 1}) || b.HeadToHead["alice"] != (model.Record{Losses: 1}) {
		t.Errorf("head-to-head not preserved: %v / %v", a.HeadToHead, b.HeadToHead)
	}
	if len(a.Medals) != 1 || a.Medals[0].Tier != model.Gold || a.Medals[0].Title != "Spring Open" {
		t.Errorf("medals not preserved: %v", a.Medals)
	}
	if a.Partners["carol"] != 2 || b.PartnerLosses["dave"] != 1 {
		t.Errorf("partners not preserved: %v / %v", a.Partners, b.PartnerLosses)
	}
	if len(a.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(a.History))
	}
	h := a.History[0]
	if h.MatchID != "m1" || h.Result != model.Win || h.OpponentID != "bob" || h.Score != 21 || h.OpponentScore != 15 ||
		h.RatingAfter != 121 || h.OpponentRatingAfter != 84 || !h.RecordedAt.Equal(playedAt) {
		t.Errorf("history entry not preserved: %+v", h)
	}
	if b.Partners == nil || b.HeadToHead == nil {
		t.Error("loaded records must have allocated maps")
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "singles.cbor")
	store := NewFileStore(path, model.Singles)

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load of a missing file: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty roster, got %d players", len(empty))
	}

	if err := store.Save(ctx, sampleRoster()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	checkRoundTrip(t, got)

	// No temporary files survive a save.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the roster file, found %d entries", len(entries))
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "singles.cbor")
	if err := os.WriteFile(path, []byte("not cbor at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path, model.Singles).Load(context.Background())
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "rally.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	singles := NewSQLiteStore(db, model.Singles)
	doubles := NewSQLiteStore(db, model.Doubles)

	if err := singles.Save(ctx, sampleRoster()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := singles.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	checkRoundTrip(t, got)

	// Ladders do not see each other's rows.
	other, err := doubles.Load(ctx)
	if err != nil {
		t.Fatalf("load doubles: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty doubles ladder, got %d", len(other))
	}

	// Save replaces rather than merges.
	shrunk := sampleRoster()
	delete(shrunk, "bob")
	if err := singles.Save(ctx, shrunk); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err = singles.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := got["bob"]; ok || len(got) != 1 {
		t.Errorf("expected only alice after replace, got %v", got.IDs())
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(model.Singles)
	r := sampleRoster()
	if err := store.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	r["alice"].Rating = 999

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	checkRoundTrip(t, got)
}

func TestCodec_IncompatibleHistory(t *testing.T) {
	// A v1 entry: result and opponent, but no scores or opponent rating.
	legacy := map[string]any{
		"format": 1,
		"players": map[string]any{
			"alice": map[string]any{
				"rating": 130,
				"wins":   1,
				"history": []any{
					map[string]any{"v": 1, "result": "W", "rating_after": 130, "opponent_id": "bob"},
				},
			},
		},
	}
	data, err := encMode.Marshal(legacy)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "singles.cbor")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	store := NewFileStore(path, model.Singles)
	roster, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("a stale history entry must not block the load: %v", err)
	}
	alice := roster["alice"]
	if alice.Rating != 130 || alice.Wins != 1 {
		t.Errorf("ratings must survive, got rating %d wins %d", alice.Rating, alice.Wins)
	}
	if len(alice.History) != 1 || alice.History[0].Version != model.IncompatibleHistoryVersion {
		t.Fatalf("expected one entry marked incompatible, got %+v", alice.History)
	}
	if _, err := history.Recent(alice); !errors.Is(err, model.ErrIncompatibleHistory) {
		t.Fatalf("expected ErrIncompatibleHistory from the history query, got %v", err)
	}

	if err := store.Save(ctx, roster); err != nil {
		t.Fatal(err)
	}
	again, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again["alice"].History[0].Version != model.IncompatibleHistoryVersion {
		t.Error("the incompatible marker must survive a save")
	}
}

func TestCodec_NewerOrInvalidEntryIsMarked(t *testing.T) {
	for name, raw := range map[string]map[string]any{
		"newer layout": {"v": 3, "result": "W", "rating_after": 1, "opponent_id": "b",
			"opponent_rating_after": 1, "score": 1, "opponent_score": 0},
		"bad result": {"v": 2, "result": "D", "rating_after": 1, "opponent_id": "b",
			"opponent_rating_after": 1, "score": 1, "opponent_score": 0},
	} {
		data, err := encMode.Marshal(map[string]any{"rating": 100, "history": []any{raw}})
		if err != nil {
			t.Fatal(err)
		}
		p, err := unmarshalPlayer("a", data)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if p.History[0].Version != model.IncompatibleHistoryVersion {
			t.Errorf("%s: expected entry marked incompatible, got version %d", name, p.History[0].Version)
		}
	}
}

func TestCodec_MissingPeakDefaultsToRating(t *testing.T) {
	data, err := encMode.Marshal(map[string]any{"rating": 150, "wins": 3})
	if err != nil {
		t.Fatal(err)
	}
	p, err := unmarshalPlayer("carol", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.PeakRating != 150 {
		t.Errorf("expected peak 150, got %d", p.PeakRating)
	}
	if p.HeadToHead == nil || p.Partners == nil || p.PartnerLosses == nil {
		t.Error("maps must be allocated on decode")
	}
}

func TestCodec_OlderCompleteEntryIsUpgraded(t *testing.T) {
	data, err := encMode.Marshal(map[string]any{
		"rating": 120,
		"history": []any{map[string]any{
			"v": 1, "result": "L", "rating_after": 120, "opponent_id": "bob",
			"opponent_rating_after": 140, "score": 9, "opponent_score": 11,
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	p, err := unmarshalPlayer("alice", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.History[0].Version != model.HistorySchemaVersion {
		t.Errorf("expected entry upgraded to version %d, got %d", model.HistorySchemaVersion, p.History[0].Version)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	stores, err := Open(ctx, Settings{Backend: "file", DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("open file backend: %v", err)
	}
	if stores.For(model.Doubles) != stores.Doubles || stores.For(model.Singles) != stores.Singles {
		t.Error("For must select the ladder's store")
	}
	if err := stores.Close(); err != nil {
		t.Errorf("close: %v", err)
	}

	mem, err := Open(ctx, Settings{Backend: "memory"}, nil)
	if err != nil || mem.Singles == nil {
		t.Fatalf("open memory backend: %v", err)
	}

	if _, err := Open(ctx, Settings{Backend: "etcd"}, nil); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("RALLY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RALLY_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := NewRedisClient(RedisSettings{Address: addr})
	defer client.Close()

	store := NewRedisStore(client, "rally-test", model.Singles)
	defer client.Del(ctx, store.Key())

	if err := store.Save(ctx, sampleRoster()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	checkRoundTrip(t, got)
}
