package board

import (
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"taskboard/domain"
)

var statusGen = rapid.SampledFrom([]domain.Status{"", domain.StatusTodo, domain.StatusInProgress, domain.StatusDone})

func taskGen() *rapid.Generator[domain.Task] {
	return rapid.Custom(func(t *rapid.T) domain.Task {
		id := rapid.IntRange(1, 12).Draw(t, "id")
		return domain.Task{
			ID:     fmt.Sprint(id),
			Title:  rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "title"),
			Status: statusGen.Draw(t, "status"),
		}
	})
}

// checkInvariant fails when a task appears in more than one column or sits
// in a column that differs from its status.
func checkInvariant(t *rapid.T, g Grouped) {
	seen := map[string]domain.Status{}
	for s, col := range g {
		for _, task := range col {
			if task.Status != s {
				t.Fatalf("task %s has status %q but sits in %q", task.ID, task.Status, s)
			}
			if prev, ok := seen[task.ID]; ok {
				t.Fatalf("task %s appears in %q and %q", task.ID, prev, s)
			}
			seen[task.ID] = s
		}
	}
}

func TestPropertyInitializeOneBucketPerTask(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tasks := rapid.SliceOf(taskGen()).Draw(rt, "tasks")
		r := New()
		r.Initialize(tasks)
		snap := r.Snapshot()
		checkInvariant(rt, snap)

		last := map[string]domain.Status{}
		for _, task := range tasks {
			last[task.ID] = task.Status.Normalize()
		}
		for id, want := range last {
			got, ok := r.Find(id)
			if !ok {
				rt.Fatalf("task %s missing after Initialize", id)
			}
			if got.Status != want {
				rt.Fatalf("task %s: want status %q, got %q", id, want, got.Status)
			}
		}
		if r.Len() != len(last) {
			rt.Fatalf("want %d tasks, got %d", len(last), r.Len())
		}
	})
}

func TestPropertyLocalUpdateIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := New()
		r.Initialize(rapid.SliceOf(taskGen()).Draw(rt, "tasks"))
		upd := taskGen().Draw(rt, "update")

		r.ApplyLocalUpdate(upd)
		once := r.Snapshot()
		r.ApplyLocalUpdate(upd)
		if !reflect.DeepEqual(once, r.Snapshot()) {
			rt.Fatalf("re-applying update changed state")
		}
		checkInvariant(rt, once)
	})
}

func TestPropertyDuplicatePushIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := New()
		r.Initialize(rapid.SliceOf(taskGen()).Draw(rt, "tasks"))
		payload := taskGen().Draw(rt, "payload")
		ev := domain.TaskChanged{BoardID: "b", Task: &payload}
		if rapid.Bool().Draw(rt, "delete") {
			ev = domain.TaskChanged{BoardID: "b", Deleted: true, TaskID: payload.ID}
		}

		r.ApplyRemotePush(ev)
		once := r.Snapshot()
		r.ApplyRemotePush(ev)
		if !reflect.DeepEqual(once, r.Snapshot()) {
			rt.Fatalf("duplicate delivery changed state")
		}
		checkInvariant(rt, once)
	})
}

func TestPropertyDragMove(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := New()
		r.Initialize(rapid.SliceOf(taskGen()).Draw(rt, "tasks"))
		before := r.Snapshot()

		src := Position{
			Status: rapid.SampledFrom(domain.Statuses()).Draw(rt, "srcStatus"),
			Index:  rapid.IntRange(0, 5).Draw(rt, "srcIndex"),
		}
		dst := Position{
			Status: rapid.SampledFrom(domain.Statuses()).Draw(rt, "dstStatus"),
			Index:  rapid.IntRange(0, 5).Draw(rt, "dstIndex"),
		}
		mv, ok := r.ApplyDragMove(src, &dst)
		after := r.Snapshot()
		checkInvariant(rt, after)
		if !ok {
			if !reflect.DeepEqual(before, after) {
				rt.Fatalf("rejected move changed state")
			}
			return
		}

		if src.Status == dst.Status {
			if mv.StatusChanged {
				rt.Fatalf("same column move flagged a status change")
			}
			for _, s := range domain.Statuses() {
				if len(before[s]) != len(after[s]) {
					rt.Fatalf("column %s changed size on reorder", s)
				}
			}
			if !sameMembers(before[src.Status], after[src.Status]) {
				rt.Fatalf("reorder changed column membership")
			}
			return
		}

		if !mv.StatusChanged || mv.Task.Status != dst.Status {
			rt.Fatalf("cross column move must set status %q, got %+v", dst.Status, mv)
		}
		got, _ := r.Find(mv.Task.ID)
		if got.Status != dst.Status {
			rt.Fatalf("stored task has status %q, want %q", got.Status, dst.Status)
		}
	})
}

func sameMembers(a, b []domain.Task) bool {
	count := map[string]int{}
	for _, t := range a {
		count[t.ID]++
	}
	for _, t := range b {
		count[t.ID]--
	}
	for _, n := range count {
		if n != 0 {
			return false
		}
	}
	return true
}
