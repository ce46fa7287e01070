package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	logx "questminder/pkg/logx"
)

func openBoth(t *testing.T, keep int) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}
	for driver, name := range map[string]string{"file": "state.json", "sqlite": "state.db"} {
		st, err := Open(Config{Driver: driver, Path: filepath.Join(dir, name), KeepFires: keep}, logx.Nop())
		if err != nil {
			t.Fatalf("open %s: %v", driver, err)
		}
		t.Cleanup(func() { _ = st.Close() })
		out[driver] = st
	}
	return out
}

func TestOpenDisabled(t *testing.T) {
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		if st != nil || err != nil {
			t.Fatalf("driver %q: expected (nil, nil), got (%v, %v)", d, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected missing path error")
	}
}

func TestSnapshotSlots(t *testing.T) {
	ctx := context.Background()
	for driver, st := range openBoth(t, 0) {
		if _, err := st.LoadSnapshot(ctx, "main"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", driver, err)
		}
		if err := st.SaveSnapshot(ctx, "main", []byte(`{"v":1}`)); err != nil {
			t.Fatalf("%s: save: %v", driver, err)
		}
		if err := st.SaveSnapshot(ctx, "main", []byte(`{"v":2}`)); err != nil {
			t.Fatalf("%s: overwrite: %v", driver, err)
		}
		if err := st.SaveSnapshot(ctx, "other", []byte(`{"v":3}`)); err != nil {
			t.Fatalf("%s: save other: %v", driver, err)
		}
		got, err := st.LoadSnapshot(ctx, "main")
		if err != nil || string(got) != `{"v":2}` {
			t.Fatalf("%s: load: %q %v", driver, got, err)
		}
		if err := st.SaveSnapshot(ctx, "../escape", nil); err == nil {
			t.Fatalf("%s: expected invalid slot error", driver)
		}
	}
}

func TestFireJournal(t *testing.T) {
	ctx := context.Background()
	for driver, st := range openBoth(t, 0) {
		for i := 1; i <= 5; i++ {
			e := FireEntry{Event: "reminder.fired", Tick: int64(i * 60), ReminderID: i, Title: fmt.Sprintf("r%d", i), Session: "s1"}
			if err := st.AppendFire(ctx, e); err != nil {
				t.Fatalf("%s: append: %v", driver, err)
			}
		}
		got, err := st.RecentFires(ctx, 3)
		if err != nil {
			t.Fatalf("%s: recent: %v", driver, err)
		}
		if len(got) != 3 {
			t.Fatalf("%s: expected 3 entries, got %d", driver, len(got))
		}
		for i, want := range []int{3, 4, 5} {
			if got[i].ReminderID != want || got[i].Session != "s1" || got[i].At.IsZero() {
				t.Fatalf("%s: entry %d: %+v", driver, i, got[i])
			}
		}
		if none, _ := st.RecentFires(ctx, 0); len(none) != 0 {
			t.Fatalf("%s: n=0 should return nothing", driver)
		}
	}
}

func TestFileJournalCompacts(t *testing.T) {
	ctx := context.Background()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "s.json"), KeepFires: 2}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	fs := st.(*fileStore)
	fs.compactEach = 4

	for i := 1; i <= 4; i++ {
		if err := st.AppendFire(ctx, FireEntry{Event: "reminder.fired", ReminderID: i}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := st.RecentFires(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ReminderID != 3 || all[1].ReminderID != 4 {
		t.Fatalf("unexpected journal after compaction: %+v", all)
	}
}
