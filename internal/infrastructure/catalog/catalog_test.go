package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.RecordSnapshot(ctx, SnapshotRecord{
		Path:      "/tmp/state.tcde",
		FieldTime: 1.5,
		NCenters:  42,
		Energy:    3.25,
	})
	if err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	if id == "" {
		t.Fatal("empty snapshot ID")
	}

	rec, err := s.Snapshot(ctx, id)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if rec.Path != "/tmp/state.tcde" || rec.NCenters != 42 || rec.FieldTime != 1.5 || rec.Energy != 3.25 {
		t.Errorf("loaded record %+v does not match what was stored", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("created timestamp not set")
	}
}

func TestSnapshotNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Snapshot(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := s.RecordSnapshot(ctx, SnapshotRecord{
			Path:      "/tmp/state.tcde",
			NCenters:  i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordSnapshot: %v", err)
		}
	}

	records, err := s.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i := 0; i+1 < len(records); i++ {
		if records[i].CreatedAt.Before(records[i+1].CreatedAt) {
			t.Errorf("records not newest-first at position %d", i)
		}
	}
	if records[0].NCenters != 2 {
		t.Errorf("newest record has NCenters %d, want 2", records[0].NCenters)
	}
}

func TestMetricsHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for step := 0; step < 4; step++ {
		err := s.RecordMetrics(ctx, MetricsSample{
			RunID:     "run-1",
			Step:      step,
			Energy:    float64(step) * 0.5,
			Coherence: 0.9,
			HIS:       0.42,
		})
		if err != nil {
			t.Fatalf("RecordMetrics step %d: %v", step, err)
		}
	}
	if err := s.RecordMetrics(ctx, MetricsSample{RunID: "run-2", Step: 0}); err != nil {
		t.Fatalf("RecordMetrics other run: %v", err)
	}

	history, err := s.MetricsHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("MetricsHistory: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("got %d samples, want 4", len(history))
	}
	for i, sample := range history {
		if sample.Step != i {
			t.Errorf("sample %d has step %d, want step order", i, sample.Step)
		}
	}
}

func TestDuplicateStepRejected(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.RecordMetrics(ctx, MetricsSample{RunID: "run-1", Step: 1}); err != nil {
		t.Fatalf("RecordMetrics: %v", err)
	}
	if err := s.RecordMetrics(ctx, MetricsSample{RunID: "run-1", Step: 1}); err == nil {
		t.Error("duplicate (run, step) insert should fail")
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v, want nil", err)
	}
	if _, err := s.RecordSnapshot(ctx, SnapshotRecord{}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("error = %v, want ErrStoreClosed", err)
	}
	if _, err := s.ListSnapshots(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("error = %v, want ErrStoreClosed", err)
	}
}
