package models

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestJobLifecycle(t *testing.T) {
	store := NewJobStore()
	job := store.Create("migrate")
	if job.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if job.State() != JobRunning {
		t.Errorf("State() = %q, want %q", job.State(), JobRunning)
	}
	if !store.Running() {
		t.Error("Running() = false with a running job")
	}

	job.AppendLog("one")
	job.AppendLog("two")
	if got := job.LogsSince(1); len(got) != 1 || got[0] != "two" {
		t.Errorf("LogsSince(1) = %v, want [two]", got)
	}
	if got := job.LogsSince(5); got != nil {
		t.Errorf("LogsSince(5) = %v, want nil", got)
	}

	job.SetRun("run-1", []StageStatistics{{Kind: KindPrivilege, Total: 1, Success: 1}})
	job.Complete()
	snap := job.Snapshot()
	if snap.Status != JobCompleted || snap.FinishedAt == nil {
		t.Errorf("Snapshot after Complete = %q (finished %v)", snap.Status, snap.FinishedAt)
	}
	if snap.RunID != "run-1" || len(snap.Stats) != 1 {
		t.Errorf("Snapshot run = %q stats = %v", snap.RunID, snap.Stats)
	}
	if store.Running() {
		t.Error("Running() = true after Complete")
	}

	failed := store.Create("rollback")
	failed.Fail("boom")
	if failed.State() != JobFailed || failed.Snapshot().Error != "boom" {
		t.Errorf("Fail did not record status/error: %+v", failed.Snapshot())
	}
}

func TestJobStore_ListMostRecentFirst(t *testing.T) {
	store := NewJobStore()
	first := store.Create("migrate")
	first.StartedAt = time.Now().Add(-time.Minute)
	second := store.Create("rollback")

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d jobs, want 2", len(list))
	}
	if list[0].ID != second.ID {
		t.Errorf("List()[0] = %s, want most recent %s", list[0].ID, second.ID)
	}
}

func TestJobStore_Concurrent(t *testing.T) {
	store := NewJobStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j := store.Create("verify")
			j.AppendLog("line")
			j.Complete()
		}()
	}
	wg.Wait()
	if len(store.List()) != 50 {
		t.Fatalf("expected 50 jobs, got %d", len(store.List()))
	}
}

func TestJobStore_CreateExclusive(t *testing.T) {
	store := NewJobStore()
	first, ok := store.CreateExclusive("migrate")
	if !ok || first == nil {
		t.Fatal("CreateExclusive on an idle store failed")
	}
	if _, ok := store.CreateExclusive("rollback"); ok {
		t.Error("CreateExclusive succeeded while a job is running")
	}
	first.Complete()
	if _, ok := store.CreateExclusive("rollback"); !ok {
		t.Error("CreateExclusive failed after the running job completed")
	}
}

func TestJobCancel(t *testing.T) {
	store := NewJobStore()
	job := store.Create("migrate")
	if job.Cancel() {
		t.Error("Cancel without a registered func reported true")
	}
	cancelled := false
	job.SetCancel(func() { cancelled = true })
	if !job.Cancel() || !cancelled {
		t.Error("Cancel did not call the registered func")
	}
	job.Complete()
	cancelled = false
	if job.Cancel() || cancelled {
		t.Error("Cancel on a finished job should be a no-op")
	}
}

func TestJobSnapshotIsDetached(t *testing.T) {
	job := NewJobStore().Create("migrate")
	job.AppendLog("first")
	job.SetRun("run-1", []StageStatistics{{Kind: KindUser, Total: 1, Success: 1}})

	view := job.Snapshot()
	job.AppendLog("second")
	job.Complete()
	if len(view.Output) != 1 || view.Status != JobRunning || view.FinishedAt != nil {
		t.Errorf("snapshot changed with the job: %+v", view)
	}

	data, err := json.Marshal(view)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "type", "run_id", "status", "started_at", "stats", "output"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("serialized job lacks %q: %s", key, data)
		}
	}
	if _, ok := decoded["finished_at"]; ok {
		t.Errorf("running snapshot should omit finished_at: %s", data)
	}
}
