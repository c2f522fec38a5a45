package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/schedule"
)

type fixture struct {
	s                 *Stores
	alice, bob, carol model.User
	flat              *model.Flat
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	s := setupTestDB(t)
	ctx := context.Background()

	var f fixture
	f.s = s
	for _, u := range []struct {
		dst         *model.User
		email, name string
	}{
		{&f.alice, "alice@example.com", "Alice"},
		{&f.bob, "bob@example.com", "Bob"},
		{&f.carol, "carol@example.com", "Carol"},
	} {
		created, err := s.Users.Create(ctx, u.email, u.name, "")
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		*u.dst = *created
	}

	flat, err := s.Flats.Create(ctx, "WG", f.alice.ID)
	if err != nil {
		t.Fatalf("create flat: %v", err)
	}
	f.flat = flat
	s.Flats.AddMember(ctx, flat.ID, f.bob.ID)
	s.Flats.AddMember(ctx, flat.ID, f.carol.ID)
	return f
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func (f fixture) createWeeklyTask(t *testing.T) (*model.Task, []model.Period) {
	t.Helper()
	task := model.Task{
		FlatID:      f.flat.ID,
		Name:        "Bathroom",
		CreatedBy:   f.alice.Snapshot(),
		Active:      true,
		PeriodValue: 1,
		PeriodUnit:  model.UnitWeek,
		StartDate:   day(2024, 1, 1),
		EndDate:     day(2024, 1, 22),
		Members:     []model.Member{f.alice.Snapshot(), f.bob.Snapshot(), f.carol.Snapshot()},
	}
	periods, err := schedule.Initial(task)
	if err != nil {
		t.Fatalf("initial: %v", err)
	}
	created, saved, err := f.s.Tasks.Create(context.Background(), task, periods)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return created, saved
}

func TestTaskCreate(t *testing.T) {
	f := setupFixture(t)
	task, periods := f.createWeeklyTask(t)

	if task.ID == 0 || !task.Active {
		t.Errorf("task = %+v", task)
	}
	if !task.StartDate.Equal(day(2024, 1, 1)) || !task.EndDate.Equal(day(2024, 1, 22)) {
		t.Errorf("dates = %v..%v", task.StartDate, task.EndDate)
	}
	if task.CreatedBy.ID != f.alice.ID {
		t.Errorf("created by = %d, want %d", task.CreatedBy.ID, f.alice.ID)
	}
	wantOrder := []int64{f.alice.ID, f.bob.ID, f.carol.ID}
	if len(task.Members) != 3 {
		t.Fatalf("got %d members, want 3", len(task.Members))
	}
	for i, id := range wantOrder {
		if task.Members[i].ID != id {
			t.Errorf("member[%d] = %d, want %d", i, task.Members[i].ID, id)
		}
	}

	if len(periods) != 3 {
		t.Fatalf("got %d periods, want 3", len(periods))
	}
	for _, p := range periods {
		if p.ID == 0 || p.TaskID != task.ID {
			t.Errorf("period = %+v", p)
		}
	}

	stored, err := f.s.Periods.ListByTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("list periods: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored %d periods, want 3", len(stored))
	}
	if !stored[1].StartDate.Equal(day(2024, 1, 8)) || stored[1].AssignedTo.ID != f.bob.ID {
		t.Errorf("stored[1] = %+v", stored[1])
	}
}

func TestTaskLists(t *testing.T) {
	f := setupFixture(t)
	task, _ := f.createWeeklyTask(t)
	ctx := context.Background()

	byFlat, err := f.s.Tasks.ListByFlat(ctx, f.flat.ID)
	if err != nil {
		t.Fatalf("list by flat: %v", err)
	}
	if len(byFlat) != 1 || len(byFlat[0].Members) != 3 {
		t.Errorf("by flat = %+v", byFlat)
	}

	forBob, err := f.s.Tasks.ListForMember(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("list for member: %v", err)
	}
	if len(forBob) != 1 || forBob[0].ID != task.ID {
		t.Errorf("for bob = %+v", forBob)
	}

	dave, _ := f.s.Users.Create(ctx, "dave@example.com", "Dave", "")
	forDave, err := f.s.Tasks.ListForMember(ctx, dave.ID)
	if err != nil {
		t.Fatalf("list for member: %v", err)
	}
	if len(forDave) != 0 {
		t.Errorf("dave should have no tasks, got %d", len(forDave))
	}
}

func TestTaskSetActive(t *testing.T) {
	f := setupFixture(t)
	task, _ := f.createWeeklyTask(t)

	closed, err := f.s.Tasks.SetActive(context.Background(), task.ID, false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if closed.Active {
		t.Error("task should be inactive")
	}
}

func TestTaskRescheduleWithNewMembers(t *testing.T) {
	f := setupFixture(t)
	task, periods := f.createWeeklyTask(t)
	ctx := context.Background()

	done, err := schedule.Complete(*task, periods[0], f.alice.Snapshot(), day(2024, 1, 3))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.s.Periods.SaveCompletion(ctx, done); err != nil {
		t.Fatalf("save completion: %v", err)
	}

	today := day(2024, 1, 10)
	updated, after, err := f.s.Tasks.Reschedule(ctx, task.ID, []int64{f.alice.ID, f.carol.ID},
		func(t model.Task, existing []model.Period) (schedule.ResetResult, error) {
			return schedule.Reset(t, existing, today)
		})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if len(updated.Members) != 2 || updated.Members[1].ID != f.carol.ID {
		t.Errorf("members = %+v", updated.Members)
	}
	if len(after) != 3 {
		t.Fatalf("got %d periods, want 3", len(after))
	}
	if after[0].ID != periods[0].ID || !after[0].Completed() {
		t.Errorf("completed period not kept: %+v", after[0])
	}
	// Index 1 in the new rotation [Alice, Carol] is Carol.
	if after[1].AssignedTo.ID != f.carol.ID || !after[1].StartDate.Equal(today) {
		t.Errorf("after[1] = %+v", after[1])
	}

	stored, _ := f.s.Periods.ListByTask(ctx, task.ID)
	if len(stored) != 3 {
		t.Errorf("stored %d periods, want 3", len(stored))
	}
	if gone, _ := f.s.Periods.GetByID(ctx, periods[2].ID); gone != nil {
		t.Error("discarded period should be deleted")
	}
}

func TestTaskRescheduleFailureRollsBack(t *testing.T) {
	f := setupFixture(t)
	task, _ := f.createWeeklyTask(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := f.s.Tasks.Reschedule(ctx, task.ID, []int64{f.bob.ID},
		func(model.Task, []model.Period) (schedule.ResetResult, error) {
			return schedule.ResetResult{}, boom
		})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, _ := f.s.Tasks.GetByID(ctx, task.ID)
	if len(got.Members) != 3 {
		t.Errorf("members changed despite rollback: %+v", got.Members)
	}
}

func TestTaskRemoveFromFlat(t *testing.T) {
	f := setupFixture(t)
	task, periods := f.createWeeklyTask(t)
	ctx := context.Background()

	today := day(2024, 1, 10)
	changed, err := f.s.Tasks.RemoveFromFlat(ctx, f.flat.ID, f.bob.ID,
		func(t model.Task, existing []model.Period) (schedule.ResetResult, error) {
			return schedule.Reset(t, existing, today)
		})
	if err != nil {
		t.Fatalf("remove from flat: %v", err)
	}
	if len(changed) != 1 || changed[0].ID != task.ID || changed[0].HasMember(f.bob.ID) {
		t.Fatalf("changed = %+v", changed)
	}

	if ok, _ := f.s.Flats.IsMember(ctx, f.flat.ID, f.bob.ID); ok {
		t.Error("bob should no longer be a flat member")
	}
	after, _ := f.s.Periods.ListByTask(ctx, task.ID)
	if len(after) != 3 || after[0].ID != periods[0].ID {
		t.Fatalf("periods = %+v", after)
	}
	// Index 1 in the rotation [Alice, Carol] is Carol.
	if after[1].AssignedTo.ID != f.carol.ID || !after[1].StartDate.Equal(today) {
		t.Errorf("after[1] = %+v", after[1])
	}
}

func TestTaskRemoveFromFlatSkipsCreatedTasks(t *testing.T) {
	f := setupFixture(t)
	task, _ := f.createWeeklyTask(t)
	ctx := context.Background()

	changed, err := f.s.Tasks.RemoveFromFlat(ctx, f.flat.ID, f.alice.ID, nil)
	if err != nil {
		t.Fatalf("remove from flat: %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("changed = %+v, want none", changed)
	}
	got, _ := f.s.Tasks.GetByID(ctx, task.ID)
	if !got.HasMember(f.alice.ID) {
		t.Error("creator should stay in the rotation")
	}
}

func TestTaskRemoveFromFlatRollsBack(t *testing.T) {
	f := setupFixture(t)
	task, periods := f.createWeeklyTask(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := f.s.Tasks.RemoveFromFlat(ctx, f.flat.ID, f.bob.ID,
		func(model.Task, []model.Period) (schedule.ResetResult, error) {
			return schedule.ResetResult{}, boom
		})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	if ok, _ := f.s.Flats.IsMember(ctx, f.flat.ID, f.bob.ID); !ok {
		t.Error("bob should still be a flat member")
	}
	got, _ := f.s.Tasks.GetByID(ctx, task.ID)
	if !got.HasMember(f.bob.ID) {
		t.Error("bob should still be in the rotation")
	}
	after, _ := f.s.Periods.ListByTask(ctx, task.ID)
	if len(after) != len(periods) {
		t.Errorf("got %d periods, want %d", len(after), len(periods))
	}
}

func TestPeriodSaveCompletionOnce(t *testing.T) {
	f := setupFixture(t)
	task, periods := f.createWeeklyTask(t)
	ctx := context.Background()

	done, _ := schedule.Complete(*task, periods[0], f.bob.Snapshot(), time.Date(2024, 1, 9, 18, 0, 0, 0, time.UTC))
	saved, err := f.s.Periods.SaveCompletion(ctx, done)
	if err != nil {
		t.Fatalf("save completion: %v", err)
	}
	if !saved.Completed() || saved.Completion.By.ID != f.bob.ID {
		t.Errorf("saved = %+v", saved)
	}
	if !saved.Delayed() {
		t.Error("completion after the end date should read back as delayed")
	}

	if _, err := f.s.Periods.SaveCompletion(ctx, done); !errors.Is(err, schedule.ErrAlreadyCompleted) {
		t.Errorf("err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestPeriodSaveCompletionDiscardedPeriod(t *testing.T) {
	f := setupFixture(t)
	task, periods := f.createWeeklyTask(t)
	ctx := context.Background()

	today := day(2024, 1, 10)
	_, _, err := f.s.Tasks.Reschedule(ctx, task.ID, nil,
		func(t model.Task, existing []model.Period) (schedule.ResetResult, error) {
			return schedule.Reset(t, existing, today)
		})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	// periods[1] was pending and in progress on the reset day, so it is gone.
	done, err := schedule.Complete(*task, periods[1], f.bob.Snapshot(), today)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	saved, err := f.s.Periods.SaveCompletion(ctx, done)
	if err != nil {
		t.Fatalf("err = %v, want nil for a missing period", err)
	}
	if saved != nil {
		t.Errorf("saved = %+v, want nil", saved)
	}
}

func TestPeriodSnapshotSurvivesProfileChange(t *testing.T) {
	f := setupFixture(t)
	task, _ := f.createWeeklyTask(t)
	ctx := context.Background()

	if _, err := f.s.Users.UpdateProfile(ctx, f.bob.ID, "Robert", "🎸"); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	periods, _ := f.s.Periods.ListByTask(ctx, task.ID)
	if periods[1].AssignedTo.DisplayName != "Bob" {
		t.Errorf("snapshot name = %q, want Bob", periods[1].AssignedTo.DisplayName)
	}

	live, _ := f.s.Tasks.GetByID(ctx, task.ID)
	if live.Members[1].DisplayName != "Robert" {
		t.Errorf("rotation name = %q, want Robert", live.Members[1].DisplayName)
	}
}
