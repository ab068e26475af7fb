package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListRuns(t *testing.T) {
	db := openTestDB(t)

	target := time.Date(2024, 3, 4, 17, 0, 0, 0, time.Local)
	runs := []Run{
		{Timestamp: target.Add(-8 * time.Hour), Action: "in"},
		{Timestamp: target.Add(-4 * time.Hour), Action: "status", AccruedHours: 4},
		{Timestamp: target.Add(-3 * time.Hour), Action: "schedule", AccruedHours: 5, Target: &target, Detail: "at job 12"},
	}
	for i := range runs {
		if _, err := db.RecordRun(&runs[i]); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	got, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Newest first
	if got[0].Action != "schedule" {
		t.Errorf("first action = %q, want schedule", got[0].Action)
	}
	if got[0].Target == nil || !got[0].Target.Equal(target) {
		t.Errorf("target = %v, want %v", got[0].Target, target)
	}
	if got[0].Detail != "at job 12" {
		t.Errorf("detail = %q", got[0].Detail)
	}
	if got[1].Action != "status" || got[1].AccruedHours != 4 {
		t.Errorf("second run = %+v", got[1])
	}
}

func TestActiveJobLifecycle(t *testing.T) {
	db := openTestDB(t)

	job, err := db.ActiveJob()
	if err != nil {
		t.Fatalf("ActiveJob: %v", err)
	}
	if job != nil {
		t.Fatalf("expected no active job, got %+v", job)
	}

	first := &Job{
		RegisteredAt: time.Now(),
		Target:       time.Now().Add(2 * time.Hour),
		Backend:      "local",
		JobRef:       "12",
	}
	firstID, err := db.RecordJob(first)
	if err != nil {
		t.Fatalf("RecordJob: %v", err)
	}

	active, err := db.ActiveJob()
	if err != nil {
		t.Fatalf("ActiveJob: %v", err)
	}
	if active == nil || active.JobRef != "12" || active.Backend != "local" {
		t.Fatalf("active = %+v", active)
	}

	if err := db.MarkJobCancelled(firstID); err != nil {
		t.Fatalf("MarkJobCancelled: %v", err)
	}
	active, err = db.ActiveJob()
	if err != nil {
		t.Fatalf("ActiveJob: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active job after cancel, got %+v", active)
	}
}

func TestActiveJobPicksNewest(t *testing.T) {
	db := openTestDB(t)

	for _, ref := range []string{"1", "2", "3"} {
		_, err := db.RecordJob(&Job{
			RegisteredAt: time.Now(),
			Target:       time.Now().Add(time.Hour),
			Backend:      "local",
			JobRef:       ref,
		})
		if err != nil {
			t.Fatalf("RecordJob: %v", err)
		}
	}

	active, err := db.ActiveJob()
	if err != nil {
		t.Fatalf("ActiveJob: %v", err)
	}
	if active == nil || active.JobRef != "3" {
		t.Errorf("active = %+v, want job_ref 3", active)
	}
}
