package archive

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pamdev00/price/internal/model"
	"github.com/pamdev00/price/internal/notify"
	"github.com/pamdev00/price/internal/store"
	"github.com/pamdev00/price/internal/undo"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type recordingNotifier struct {
	notices []string
	offers  []undo.Handle
}

func (n *recordingNotifier) Notice(msg string) { n.notices = append(n.notices, msg) }

func (n *recordingNotifier) OfferUndo(_ string, h undo.Handle) { n.offers = append(n.offers, h) }

// heldConfirmer keeps requests until the test accepts them.
type heldConfirmer struct {
	requests []notify.Request
}

func (c *heldConfirmer) Confirm(req notify.Request) { c.requests = append(c.requests, req) }

func (c *heldConfirmer) acceptLast(t *testing.T) {
	t.Helper()
	if len(c.requests) == 0 {
		t.Fatal("no confirmation was requested")
	}
	req := c.requests[len(c.requests)-1]
	if req.OnAccept != nil {
		req.OnAccept()
	}
}

type fixture struct {
	arc       *Archive
	gw        *store.MemoryStore
	clock     *testClock
	notifier  *recordingNotifier
	confirmer *heldConfirmer
}

// setupArchive seeds n stored sessions, newest first, named S<n-1> down to S0.
func setupArchive(t *testing.T, n int) *fixture {
	t.Helper()
	f := &fixture{
		gw:        store.NewMemoryStore(0),
		clock:     &testClock{now: time.UnixMilli(1_700_000_000_000)},
		notifier:  &recordingNotifier{},
		confirmer: &heldConfirmer{},
	}

	seeded := make([]model.Session, n)
	for i := 0; i < n; i++ {
		seeded[n-1-i] = model.Session{
			Name:     fmt.Sprintf("S%d", i),
			Products: []model.Product{{ID: int64(i + 1), Name: "p", PricePerUnit: 1, AddedAt: int64(i + 1)}},
			SavedAt:  int64(1_600_000_000_000 + i),
		}
	}
	if n > 0 {
		if err := store.Save(f.gw, store.JSON{}, store.KeySessions, seeded); err != nil {
			t.Fatalf("seed sessions: %v", err)
		}
	}

	arc, err := New(Config{
		Gateway:   f.gw,
		Confirmer: f.confirmer,
		Notifier:  f.notifier,
		Clock:     f.clock.Now,
	})
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	if arc.Len() != n {
		t.Fatalf("loaded %d sessions, want %d", arc.Len(), n)
	}
	f.arc = arc
	return f
}

func (f *fixture) stored(t *testing.T) []model.Session {
	t.Helper()
	sessions, err := store.Load[model.Session](f.gw, store.JSON{}, store.KeySessions)
	if err != nil {
		t.Fatalf("load stored sessions: %v", err)
	}
	return sessions
}

func products(names ...string) []model.Product {
	out := make([]model.Product, len(names))
	for i, n := range names {
		out[i] = model.Product{ID: int64(100 + i), Name: n, PricePerUnit: float64(i + 1), Unit: "g", AddedAt: int64(100 + i)}
	}
	return out
}

func TestSaveSession(t *testing.T) {
	f := setupArchive(t, 2)
	input := products("Milk", "Bread")

	result, err := f.arc.SaveSession("Weekly", input)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if result.Tier != TierSaved || result.Evicted != 0 {
		t.Errorf("result = %+v, want first-tier save", result)
	}

	input[0].Name = "changed"

	all := f.arc.GetAll()
	if len(all) != 3 || all[0].Name != "Weekly" {
		t.Fatalf("sessions = %v", all)
	}
	if all[0].Products[0].Name != "Milk" {
		t.Error("session aliases the caller's products")
	}
	if all[0].SavedAt != f.clock.now.UnixMilli() {
		t.Errorf("SavedAt = %d", all[0].SavedAt)
	}
	if stored := f.stored(t); len(stored) != 3 || stored[0].Name != "Weekly" {
		t.Errorf("stored = %v", stored)
	}
	if len(f.confirmer.requests) != 0 || len(f.notifier.notices) != 0 {
		t.Error("first-tier save reported to the user")
	}
}

func TestSaveSessionDefaultName(t *testing.T) {
	f := setupArchive(t, 3)

	result, err := f.arc.SaveSession("  ", products("A"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if result.Session.Name != "Comparison 4" {
		t.Errorf("name = %q, want Comparison 4", result.Session.Name)
	}
}

func TestSaveSessionCapsHistory(t *testing.T) {
	f := setupArchive(t, MaxSessions)

	if _, err := f.arc.SaveSession("Newest", products("A")); err != nil {
		t.Fatalf("save: %v", err)
	}
	all := f.arc.GetAll()
	if len(all) != MaxSessions {
		t.Fatalf("Len = %d, want %d", len(all), MaxSessions)
	}
	if all[0].Name != "Newest" || all[len(all)-1].Name != "S1" {
		t.Errorf("first = %s, last = %s, want Newest and S1", all[0].Name, all[len(all)-1].Name)
	}
	if got := f.gw.Writes(); got != 2 {
		t.Errorf("writes = %d, want the seed plus one", got)
	}
}

func TestSaveSessionFirstFailureEvictsOldest(t *testing.T) {
	for _, existing := range []int{21, 30, 49} {
		t.Run(fmt.Sprintf("%d existing", existing), func(t *testing.T) {
			f := setupArchive(t, existing)
			f.gw.FailNextWrites(1)

			result, err := f.arc.SaveSession("New", products("A"))
			if err != nil {
				t.Fatalf("save: %v", err)
			}

			want := existing + 1 - EvictBatch
			if f.arc.Len() != want {
				t.Fatalf("Len = %d, want %d", f.arc.Len(), want)
			}
			if result.Tier != TierEvicted || result.Evicted != EvictBatch {
				t.Errorf("result = %+v", result)
			}

			all := f.arc.GetAll()
			if all[0].Name != "New" {
				t.Errorf("newest = %s, want New", all[0].Name)
			}
			// Survivors are the newest seeded sessions.
			if oldest := all[len(all)-1].Name; oldest != fmt.Sprintf("S%d", EvictBatch) {
				t.Errorf("oldest survivor = %s, want S%d", oldest, EvictBatch)
			}
			if len(f.stored(t)) != want {
				t.Errorf("stored %d sessions, want %d", len(f.stored(t)), want)
			}

			if len(f.confirmer.requests) != 1 {
				t.Fatalf("confirmations = %d, want 1", len(f.confirmer.requests))
			}
			if req := f.confirmer.requests[0]; req.Action != "Open history" {
				t.Errorf("confirmation = %+v", req)
			}
			if len(f.notifier.notices) != 0 {
				t.Errorf("notices = %v, want none", f.notifier.notices)
			}
		})
	}
}

func TestSaveSessionNeverEvictsToZero(t *testing.T) {
	for _, existing := range []int{0, 1, 5, 19, 20} {
		t.Run(fmt.Sprintf("%d existing", existing), func(t *testing.T) {
			f := setupArchive(t, existing)
			f.gw.FailNextWrites(1)

			if _, err := f.arc.SaveSession("New", products("A")); err != nil {
				t.Fatalf("save: %v", err)
			}
			if f.arc.Len() != 1 {
				t.Fatalf("Len = %d, want 1", f.arc.Len())
			}
			if f.arc.GetAll()[0].Name != "New" {
				t.Error("the new session was evicted")
			}
		})
	}
}

func TestSaveSessionOpenHistoryContinuation(t *testing.T) {
	f := setupArchive(t, 25)
	opened := false
	f.arc.onOpenHistory = func() { opened = true }
	f.gw.FailNextWrites(1)

	if _, err := f.arc.SaveSession("New", products("A")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if opened {
		t.Fatal("history opened before the user accepted")
	}
	f.confirmer.acceptLast(t)
	if !opened {
		t.Error("accepting did not open history")
	}
}

func TestSaveSessionSecondFailureTruncates(t *testing.T) {
	tests := []struct {
		existing int
		want     int
	}{
		{existing: 51, want: 32},
		{existing: 69, want: 50},
		{existing: 100, want: FallbackKeep},
		{existing: MaxSessions, want: FallbackKeep},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d existing", tt.existing), func(t *testing.T) {
			f := setupArchive(t, tt.existing)
			f.gw.FailNextWrites(2)

			result, err := f.arc.SaveSession("New", products("A"))
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if f.arc.Len() != tt.want {
				t.Fatalf("Len = %d, want %d", f.arc.Len(), tt.want)
			}
			if f.arc.Len() > FallbackKeep {
				t.Errorf("Len %d exceeds %d", f.arc.Len(), FallbackKeep)
			}
			if result.Tier != TierTruncated {
				t.Errorf("tier = %d, want %d", result.Tier, TierTruncated)
			}
			total := min(tt.existing+1, MaxSessions)
			if result.Evicted != total-tt.want {
				t.Errorf("evicted = %d, want %d", result.Evicted, total-tt.want)
			}
			if f.arc.GetAll()[0].Name != "New" {
				t.Error("newest session was not kept")
			}
			if len(f.stored(t)) != tt.want {
				t.Errorf("stored %d sessions, want %d", len(f.stored(t)), tt.want)
			}

			if len(f.notifier.notices) != 1 || f.notifier.notices[0] != NoticeStorageExhausted {
				t.Errorf("notices = %v", f.notifier.notices)
			}
			if len(f.confirmer.requests) != 0 {
				t.Errorf("confirmations = %d, want none", len(f.confirmer.requests))
			}
		})
	}
}

func TestSaveSessionAttemptsAtMostThreeWrites(t *testing.T) {
	f := setupArchive(t, 80)
	before := f.gw.Writes()
	f.gw.FailAllWrites(true)

	result, err := f.arc.SaveSession("New", products("A"))
	if !errors.Is(err, store.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if got := f.gw.Writes() - before; got != 3 {
		t.Errorf("write attempts = %d, want 3", got)
	}
	if result.Tier != TierTruncated || f.arc.Len() != FallbackKeep {
		t.Errorf("result = %+v, Len = %d", result, f.arc.Len())
	}
	if len(f.notifier.notices) != 1 {
		t.Errorf("notices = %v", f.notifier.notices)
	}
}

func TestLoadSessionIntoEmptyComparison(t *testing.T) {
	f := setupArchive(t, 0)
	saved := products("A", "B", "C")
	if _, err := f.arc.SaveSession("Trip", saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	var loaded []model.Product
	if err := f.arc.LoadSession(0, nil, func(p []model.Product) { loaded = p }); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(f.confirmer.requests) != 0 {
		t.Error("empty comparison asked for confirmation")
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d products", len(loaded))
	}

	for i, p := range loaded {
		if p.Name != saved[i].Name {
			t.Errorf("product %d = %s, want %s", i, p.Name, saved[i].Name)
		}
		if p.ID == saved[i].ID || p.AddedAt != p.ID {
			t.Errorf("product %d id = %d, addedAt = %d, want a fresh matching pair", i, p.ID, p.AddedAt)
		}
		if i > 0 && p.ID <= loaded[i-1].ID {
			t.Errorf("ids not increasing: %d after %d", p.ID, loaded[i-1].ID)
		}
	}

	if got := f.arc.GetAll()[0].Products[0].ID; got != saved[0].ID {
		t.Errorf("loading changed the stored snapshot id to %d", got)
	}
}

func TestLoadSessionAsksBeforeReplacing(t *testing.T) {
	f := setupArchive(t, 1)

	called := false
	if err := f.arc.LoadSession(0, products("Current"), func([]model.Product) { called = true }); err != nil {
		t.Fatalf("load: %v", err)
	}
	if called {
		t.Fatal("replaced the comparison without confirmation")
	}
	if len(f.confirmer.requests) != 1 || f.confirmer.requests[0].Action != "Load" {
		t.Fatalf("confirmations = %+v", f.confirmer.requests)
	}

	f.confirmer.acceptLast(t)
	if !called {
		t.Error("accepting did not load")
	}
}

func TestLoadSessionOutOfRange(t *testing.T) {
	f := setupArchive(t, 1)

	for _, index := range []int{-1, 1, 10} {
		if err := f.arc.LoadSession(index, nil, nil); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("LoadSession(%d) err = %v, want ErrSessionNotFound", index, err)
		}
	}
}

func TestDeleteSessionAndUndo(t *testing.T) {
	f := setupArchive(t, 3)
	target := f.arc.GetAll()[1]

	deleted := 0
	if err := f.arc.DeleteSession(1, func() { deleted++ }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.arc.Len() != 3 || deleted != 0 {
		t.Fatal("deleted before confirmation")
	}
	req := f.confirmer.requests[0]
	if !req.Danger || req.Action != "Delete" {
		t.Errorf("confirmation = %+v", req)
	}

	f.confirmer.acceptLast(t)
	if f.arc.Len() != 2 || deleted != 1 {
		t.Fatalf("Len = %d, deleted = %d after accept", f.arc.Len(), deleted)
	}
	if len(f.stored(t)) != 2 {
		t.Error("deletion not persisted")
	}
	if len(f.notifier.offers) != 1 {
		t.Fatalf("undo offers = %d, want 1", len(f.notifier.offers))
	}

	if !f.arc.Undo(f.notifier.offers[0].ID) {
		t.Fatal("undo failed within window")
	}
	all := f.arc.GetAll()
	if len(all) != 3 || all[1].Name != target.Name || all[1].SavedAt != target.SavedAt {
		t.Errorf("restored = %v, want %s at index 1", all, target.Name)
	}
	if deleted != 2 {
		t.Errorf("onDeleted calls = %d, want 2", deleted)
	}
	if stored := f.stored(t); len(stored) != 3 || stored[1].Name != target.Name {
		t.Error("restore not persisted")
	}
}

func TestDeleteSessionUndoExpires(t *testing.T) {
	f := setupArchive(t, 2)
	if err := f.arc.DeleteSession(0, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	f.confirmer.acceptLast(t)

	f.clock.now = f.clock.now.Add(undo.DefaultWindow)
	if expired := f.arc.SweepUndo(); len(expired) != 1 {
		t.Errorf("swept %d handles, want 1", len(expired))
	}
	if f.arc.Undo(f.notifier.offers[0].ID) {
		t.Error("undo succeeded after the window closed")
	}
	if f.arc.Len() != 1 {
		t.Errorf("Len = %d, want 1", f.arc.Len())
	}
}

func TestDeleteSessionFollowsShiftedIndex(t *testing.T) {
	f := setupArchive(t, 3)
	target := f.arc.GetAll()[1]

	if err := f.arc.DeleteSession(1, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.arc.SaveSession("Inserted", products("A")); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.confirmer.acceptLast(t)

	for _, s := range f.arc.GetAll() {
		if s.Name == target.Name {
			t.Fatalf("%s survived its confirmed deletion", target.Name)
		}
	}
	if f.arc.Len() != 3 {
		t.Errorf("Len = %d, want 3", f.arc.Len())
	}
}

func TestDeleteSessionOutOfRange(t *testing.T) {
	f := setupArchive(t, 1)

	if err := f.arc.DeleteSession(3, nil); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if len(f.confirmer.requests) != 0 {
		t.Error("asked to confirm deleting a missing session")
	}
}

func TestSummaries(t *testing.T) {
	f := setupArchive(t, 0)
	if _, err := f.arc.SaveSession("Empty", nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.arc.SaveSession("Dairy", []model.Product{
		{Name: "Milk", PricePerUnit: 0.09, Unit: "ml"},
		{Name: "Kefir", PricePerUnit: 0.08, Unit: "ml"},
		{Name: "Cream", PricePerUnit: 0.08, Unit: "ml"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := f.arc.Summaries()
	if len(got) != 2 {
		t.Fatalf("summaries = %d, want 2", len(got))
	}
	dairy := got[0]
	if dairy.Index != 0 || dairy.Name != "Dairy" || dairy.Count != 3 {
		t.Errorf("summary = %+v", dairy)
	}
	if dairy.Cheapest == nil || dairy.Cheapest.Name != "Kefir" || dairy.Cheapest.Display != "0.08" {
		t.Errorf("cheapest = %+v, want Kefir at 0.08", dairy.Cheapest)
	}
	if got[1].Cheapest != nil || got[1].Count != 0 {
		t.Errorf("empty session summary = %+v", got[1])
	}
}
