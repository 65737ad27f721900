package supervisor

import (
	"context"
	"testing"

	"mercator-hq/porthole/pkg/token"
)

func TestValidateSchedule(t *testing.T) {
	for _, s := range []string{"", DefaultSnapshotSchedule, "0 * * * *", "@daily"} {
		if err := ValidateSchedule(s); err != nil {
			t.Errorf("ValidateSchedule(%q) error = %v", s, err)
		}
	}
	for _, s := range []string{"every five minutes", "* * *", "@every"} {
		if err := ValidateSchedule(s); err == nil {
			t.Errorf("ValidateSchedule(%q) should fail", s)
		}
	}
}

func TestSnapshotter_StopSavesState(t *testing.T) {
	ctx := context.Background()
	r, backend := newTestRegistry(t, token.StartupOpen, token.ShutdownPass)

	sup := New("alice", "", KindTokenized, "c1", "127.0.0.1")
	if err := r.Register(ctx, sup); err != nil {
		t.Fatal(err)
	}

	s := NewSnapshotter(r, DefaultSnapshotSchedule)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.NextRun() == nil {
		t.Error("NextRun() = nil after Start")
	}

	token.Set(sup.Token, token.String("changed"))
	s.Stop(ctx)

	rec, _ := backend.Load(ctx, "alice", "")
	if rec.State[token.StateKey] != "changed" {
		t.Errorf("final snapshot not saved: %v", rec.State)
	}
}

func TestSnapshotter_EmptySchedule(t *testing.T) {
	r, _ := newTestRegistry(t, token.StartupOpen, token.ShutdownPass)
	s := NewSnapshotter(r, "")

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.NextRun() != nil {
		t.Error("NextRun() should be nil without a schedule")
	}
	s.Stop(context.Background())
}

func TestSnapshotter_InvalidSchedule(t *testing.T) {
	r, _ := newTestRegistry(t, token.StartupOpen, token.ShutdownPass)
	if err := NewSnapshotter(r, "bogus").Start(context.Background()); err == nil {
		t.Error("Start() should fail on an invalid schedule")
	}
}
