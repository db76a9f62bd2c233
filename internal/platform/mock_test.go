package platform

import (
	"errors"
	"testing"

	"github.com/1broseidon/tilewm/internal/geometry"
)

func TestMockBatchGuardNestedRejected(t *testing.T) {
	m := NewMockSource(nil, nil)

	guard, err := m.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	if _, err := m.BeginBatch(); err == nil {
		t.Error("nested BeginBatch should be rejected")
	}
	if err := guard.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := m.BeginBatch(); err != nil {
		t.Errorf("BeginBatch after release: %v", err)
	}
}

func TestMockBatchGuardReleaseIdempotent(t *testing.T) {
	m := NewMockSource(nil, nil)

	guard, err := m.BeginBatch()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := guard.Release(); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if begins, releases := m.BatchCounts(); begins != 1 || releases != 1 {
		t.Errorf("counts = %d/%d, want 1/1", begins, releases)
	}
}

func TestMockMoveResizeInjectedFailure(t *testing.T) {
	boom := errors.New("rejected")
	m := NewMockSource(nil, []Window{{ID: 1}, {ID: 2}})
	m.MoveResizeErr[1] = boom

	if err := m.MoveResize(1, geometry.Rect{Width: 100, Height: 100}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want injected failure", err)
	}
	if err := m.MoveResize(2, geometry.Rect{Width: 100, Height: 100}); err != nil {
		t.Errorf("window 2 should still move: %v", err)
	}
	if moves := m.Moves(); len(moves) != 1 || moves[0].ID != 2 {
		t.Errorf("moves = %v, want only window 2", moves)
	}
}
