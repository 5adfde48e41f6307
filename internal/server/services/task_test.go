package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkovs/taskdeck/internal/common"
	"github.com/avolkovs/taskdeck/internal/server/models"
	"github.com/avolkovs/taskdeck/internal/server/query"
)

// fakeTasksRepo keys tasks by owner+id, so cross-owner lookups miss the same
// way the SQL WHERE clause does.
type fakeTasksRepo struct {
	tasks map[string]*models.Task

	createErr error
	listErr   error
}

func taskKey(ownerID, id string) string { return ownerID + "/" + id }

func (f *fakeTasksRepo) Create(ctx context.Context, task *models.Task) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.tasks == nil {
		f.tasks = map[string]*models.Task{}
	}
	task.CreatedAt = time.Now()
	f.tasks[taskKey(task.OwnerID, task.ID)] = task
	return nil
}

func (f *fakeTasksRepo) GetByID(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if t, ok := f.tasks[taskKey(ownerID, id)]; ok {
		clone := *t
		return &clone, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTasksRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Task
	for _, t := range f.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasksRepo) Update(ctx context.Context, task *models.Task) error {
	key := taskKey(task.OwnerID, task.ID)
	if _, ok := f.tasks[key]; !ok {
		return common.ErrorNotFound
	}
	f.tasks[key] = task
	return nil
}

func (f *fakeTasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	key := taskKey(ownerID, id)
	if _, ok := f.tasks[key]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tasks, key)
	return nil
}

func newTaskService(t *testing.T, repo *fakeTasksRepo) *TaskService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	return NewTaskService(db, &fakeRepoManager{t: repo})
}

func fixedNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = orig })
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestTaskCreate_Success(t *testing.T) {
	fixedNow(t, testNow)
	repo := &fakeTasksRepo{}
	s := newTaskService(t, repo)

	task, err := s.Create(context.Background(), "u1", CreateTaskParams{
		Title:    "write report",
		Priority: "high",
		DueDate:  testNow.AddDate(0, 0, 1),
		Subtasks: []models.Subtask{{Title: "draft"}},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if task.ID == "" || task.OwnerID != "u1" {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.Priority != models.PriorityHigh {
		t.Fatalf("priority not canonicalized: %q", task.Priority)
	}
}

func TestTaskCreate_Validation(t *testing.T) {
	fixedNow(t, testNow)
	s := newTaskService(t, &fakeTasksRepo{})

	tomorrow := testNow.AddDate(0, 0, 1)
	tests := []struct {
		name   string
		params CreateTaskParams
	}{
		{name: "empty title", params: CreateTaskParams{Title: "  ", Priority: "low", DueDate: tomorrow}},
		{name: "bad priority", params: CreateTaskParams{Title: "x", Priority: "urgent", DueDate: tomorrow}},
		{name: "missing due date", params: CreateTaskParams{Title: "x", Priority: "low"}},
		{name: "past due date", params: CreateTaskParams{Title: "x", Priority: "low", DueDate: testNow.AddDate(0, 0, -1)}},
		{name: "empty subtask title", params: CreateTaskParams{Title: "x", Priority: "low", DueDate: tomorrow, Subtasks: []models.Subtask{{Title: ""}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), "u1", tt.params)
			if !errors.Is(err, common.ErrorValidation) {
				t.Fatalf("want common.ErrorValidation, got %v", err)
			}
		})
	}
}

func TestTaskCreate_DueLaterTodayIsValid(t *testing.T) {
	fixedNow(t, time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC))
	s := newTaskService(t, &fakeTasksRepo{})

	// Midnight of the current day: earlier instant, same calendar day.
	_, err := s.Create(context.Background(), "u1", CreateTaskParams{
		Title:    "tonight",
		Priority: "low",
		DueDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestTaskCreate_DueTodayValidWestOfUTC(t *testing.T) {
	// Due dates arrive parsed as UTC midnight. A server clock west of UTC
	// must not push today's date into yesterday.
	fixedNow(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.FixedZone("UTC-5", -5*60*60)))
	s := newTaskService(t, &fakeTasksRepo{})

	_, err := s.Create(context.Background(), "u1", CreateTaskParams{
		Title:    "due today",
		Priority: "low",
		DueDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestTask_MalformedIDIsNotFound(t *testing.T) {
	fixedNow(t, testNow)
	s := newTaskService(t, &fakeTasksRepo{})

	if _, err := s.Get(context.Background(), "u1", "abc"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("get: want common.ErrorNotFound, got %v", err)
	}

	title := "x"
	if _, err := s.Update(context.Background(), "u1", "abc", UpdateTaskParams{Title: &title}); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("update: want common.ErrorNotFound, got %v", err)
	}

	if err := s.Delete(context.Background(), "u1", "abc"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("delete: want common.ErrorNotFound, got %v", err)
	}
}

func TestTaskGet_ForeignOwnerIsNotFound(t *testing.T) {
	fixedNow(t, testNow)
	repo := &fakeTasksRepo{}
	s := newTaskService(t, repo)

	task, err := s.Create(context.Background(), "owner-b", CreateTaskParams{
		Title: "b's task", Priority: "low", DueDate: testNow.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	_, err = s.Get(context.Background(), "owner-a", task.ID)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestTaskUpdate_ForeignOwnerIsNotFound(t *testing.T) {
	fixedNow(t, testNow)
	repo := &fakeTasksRepo{}
	s := newTaskService(t, repo)

	task, err := s.Create(context.Background(), "owner-b", CreateTaskParams{
		Title: "b's task", Priority: "low", DueDate: testNow.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	newTitle := "hijack"
	_, err = s.Update(context.Background(), "owner-a", task.ID, UpdateTaskParams{Title: &newTitle})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}

	if err := s.Delete(context.Background(), "owner-a", task.ID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("delete: want common.ErrorNotFound, got %v", err)
	}
}

func TestTaskUpdate_PartialSemantics(t *testing.T) {
	fixedNow(t, testNow)
	repo := &fakeTasksRepo{}
	s := newTaskService(t, repo)

	task, err := s.Create(context.Background(), "u1", CreateTaskParams{
		Title:       "original",
		Description: "keep me",
		Priority:    "medium",
		DueDate:     testNow.AddDate(0, 0, 2),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	completed := true
	got, err := s.Update(context.Background(), "u1", task.ID, UpdateTaskParams{Completed: &completed})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !got.Completed {
		t.Fatal("completed not applied")
	}
	if got.Title != "original" || got.Description != "keep me" || got.Priority != models.PriorityMedium {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if got.OwnerID != "u1" || !got.CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("immutable fields changed: %+v", got)
	}
}

func TestTaskUpdate_RevalidatesTouchedFields(t *testing.T) {
	fixedNow(t, testNow)
	repo := &fakeTasksRepo{}
	s := newTaskService(t, repo)

	task, err := s.Create(context.Background(), "u1", CreateTaskParams{
		Title: "x", Priority: "low", DueDate: testNow.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	past := testNow.AddDate(0, 0, -3)
	_, err = s.Update(context.Background(), "u1", task.ID, UpdateTaskParams{DueDate: &past})
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want common.ErrorValidation, got %v", err)
	}

	badPriority := "asap"
	_, err = s.Update(context.Background(), "u1", task.ID, UpdateTaskParams{Priority: &badPriority})
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want common.ErrorValidation, got %v", err)
	}
}

func TestTaskList_AppliesFilterAndOrder(t *testing.T) {
	fixedNow(t, testNow)
	repo := &fakeTasksRepo{}
	s := newTaskService(t, repo)

	mk := func(title, priority string, due time.Time) *models.Task {
		task, err := s.Create(context.Background(), "u1", CreateTaskParams{Title: title, Priority: priority, DueDate: due})
		if err != nil {
			t.Fatalf("Create(%s) error: %v", title, err)
		}
		return task
	}

	mk("due today", "low", testNow)
	mk("due in 6", "high", testNow.AddDate(0, 0, 6))
	mk("due in 8", "high", testNow.AddDate(0, 0, 8))

	todays, err := s.List(context.Background(), "u1", query.FilterToday)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(todays) != 1 || todays[0].Title != "due today" {
		t.Fatalf("unexpected today view: %+v", todays)
	}

	week, err := s.List(context.Background(), "u1", query.FilterWeek)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(week) != 2 {
		t.Fatalf("want 2 tasks within a week, got %d", len(week))
	}

	other, err := s.List(context.Background(), "u2", query.FilterAll)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("another owner sees %d tasks", len(other))
	}
}

func TestTaskStats_IgnoresFilterUsesCanonicalCompleted(t *testing.T) {
	fixedNow(t, testNow)
	repo := &fakeTasksRepo{}
	s := newTaskService(t, repo)

	due := testNow.AddDate(0, 0, 1)
	if _, err := s.Create(context.Background(), "u1", CreateTaskParams{Title: "a", Priority: "low", DueDate: due, Completed: true}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := s.Create(context.Background(), "u1", CreateTaskParams{Title: "b", Priority: "medium", DueDate: due}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := s.Create(context.Background(), "u1", CreateTaskParams{Title: "c", Priority: "high", DueDate: due}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	stats, err := s.Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	want := query.Stats{Total: 3, LowPriority: 1, MediumPriority: 1, HighPriority: 1, Completed: 1, Productivity: 33}
	if stats != want {
		t.Fatalf("stats mismatch:\n got %+v\nwant %+v", stats, want)
	}
}

func TestTaskStats_EmptySet(t *testing.T) {
	s := newTaskService(t, &fakeTasksRepo{})

	stats, err := s.Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Productivity != 0 || stats.Total != 0 {
		t.Fatalf("want zero stats, got %+v", stats)
	}
}
