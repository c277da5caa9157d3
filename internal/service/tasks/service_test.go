package tasks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerucko/taskboard/internal/models"
	"github.com/kerucko/taskboard/internal/repository"
)

type fakeTaskRepo struct {
	mu           sync.Mutex
	tasks        map[string]models.Task
	overlapScans int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]models.Task)}
}

func (r *fakeTaskRepo) Create(_ context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return repository.ErrNotFound
	}
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) List(_ context.Context, filters repository.TaskFilters) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Task
	for _, t := range r.tasks {
		if filters.StatusID != "" && t.StatusID != filters.StatusID {
			continue
		}
		if filters.AssignedUserID != "" && t.AssignedUserID != filters.AssignedUserID {
			continue
		}
		if filters.Search != "" {
			needle := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(t.Title), needle) &&
				!strings.Contains(strings.ToLower(t.Description), needle) {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTaskRepo) FindOverlapping(_ context.Context, userID string, start, end models.Date, excludeTaskID string) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlapScans++
	var out []models.Task
	for _, t := range r.tasks {
		if t.AssignedUserID != userID || t.ID == excludeTaskID {
			continue
		}
		if !t.StartDate.After(end.Time) && !t.EndDate.Before(start.Time) {
			out = append(out, t)
		}
	}
	return out, nil
}

type ledgerRow struct {
	userID     string
	start, end models.Date
}

type fakeLedger struct {
	mu      sync.Mutex
	rows    map[string]ledgerRow
	upserts int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]ledgerRow)}
}

func (l *fakeLedger) Upsert(_ context.Context, taskID, userID string, start, end models.Date) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.upserts++
	l.rows[taskID] = ledgerRow{userID: userID, start: start, end: end}
	return nil
}

func (l *fakeLedger) DeleteByTask(_ context.Context, taskID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rows, taskID)
	return nil
}

type fakeDirectory struct {
	ids map[string]bool
}

func (d *fakeDirectory) Exists(_ context.Context, id string) (bool, error) {
	return d.ids[id], nil
}

type recordedJob struct {
	userID, taskID, action string
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []recordedJob
	err  error
}

func (n *recordingNotifier) EnqueueTaskNotification(userID, taskID, action string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.jobs = append(n.jobs, recordedJob{userID, taskID, action})
	return nil
}

type recordedEvent struct {
	event, taskID string
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) BroadcastTaskEvent(event, taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{event, taskID})
}

type fixture struct {
	svc         *Service
	tasks       *fakeTaskRepo
	ledger      *fakeLedger
	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster
	userA       string
	userB       string
	statusID    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tasks:       newFakeTaskRepo(),
		ledger:      newFakeLedger(),
		notifier:    &recordingNotifier{},
		broadcaster: &recordingBroadcaster{},
		userA:       uuid.NewString(),
		userB:       uuid.NewString(),
		statusID:    uuid.NewString(),
	}
	users := &fakeDirectory{ids: map[string]bool{f.userA: true, f.userB: true}}
	statuses := &fakeDirectory{ids: map[string]bool{f.statusID: true}}
	f.svc = NewService(f.tasks, f.ledger, users, statuses, f.notifier, f.broadcaster, zerolog.Nop())
	return f
}

func (f *fixture) create(t *testing.T, userID, start, end string) *models.Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), CreateTaskInput{
		Title:          "task",
		StartDate:      date(t, start),
		EndDate:        date(t, end),
		AssignedUserID: userID,
		StatusID:       f.statusID,
	})
	require.NoError(t, err)
	return task
}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func strptr(s string) *string { return &s }

func dateptr(t *testing.T, s string) *models.Date {
	d := date(t, s)
	return &d
}

// assertLedgerMirrors checks the mirror property: one ledger row per
// task carrying exactly the task's assignee and range, and nothing
// else.
func assertLedgerMirrors(t *testing.T, tasks *fakeTaskRepo, ledger *fakeLedger) {
	t.Helper()
	tasks.mu.Lock()
	defer tasks.mu.Unlock()
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	require.Len(t, ledger.rows, len(tasks.tasks))
	for id, task := range tasks.tasks {
		row, ok := ledger.rows[id]
		require.True(t, ok, "missing ledger row for task %s", id)
		assert.Equal(t, task.AssignedUserID, row.userID)
		assert.True(t, row.start.Equal(task.StartDate.Time))
		assert.True(t, row.end.Equal(task.EndDate.Time))
	}
}

func assertNoUserOverlap(t *testing.T, tasks *fakeTaskRepo) {
	t.Helper()
	tasks.mu.Lock()
	defer tasks.mu.Unlock()

	byUser := make(map[string][]models.Task)
	for _, task := range tasks.tasks {
		byUser[task.AssignedUserID] = append(byUser[task.AssignedUserID], task)
	}
	for user, list := range byUser {
		for i := range list {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				overlap := !a.StartDate.After(b.EndDate.Time) && !a.EndDate.Before(b.StartDate.Time)
				assert.False(t, overlap, "user %s has overlapping tasks %s and %s", user, a.ID, b.ID)
			}
		}
	}
}

func TestCreateRejectsInvalidRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateTaskInput{
		Title:          "backwards",
		StartDate:      date(t, "2024-01-10"),
		EndDate:        date(t, "2024-01-01"),
		AssignedUserID: f.userA,
		StatusID:       f.statusID,
	})
	require.ErrorIs(t, err, ErrInvalidRange)
	assert.Empty(t, f.tasks.tasks)
	assert.Zero(t, f.tasks.overlapScans, "invalid range must be rejected before any scan")
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateTaskInput{
		Title:          "ghost assignee",
		StartDate:      date(t, "2024-01-01"),
		EndDate:        date(t, "2024-01-05"),
		AssignedUserID: uuid.NewString(),
		StatusID:       f.statusID,
	})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Create(context.Background(), CreateTaskInput{
		Title:          "ghost status",
		StartDate:      date(t, "2024-01-01"),
		EndDate:        date(t, "2024-01-05"),
		AssignedUserID: f.userA,
		StatusID:       uuid.NewString(),
	})
	require.ErrorIs(t, err, ErrStatusNotFound)
}

func TestCreateTouchingEndpointsConflict(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.userA, "2024-01-01", "2024-01-05")

	// Closed intervals: a task ending the day another begins overlaps.
	_, err := f.svc.Create(context.Background(), CreateTaskInput{
		Title:          "touching",
		StartDate:      date(t, "2024-01-05"),
		EndDate:        date(t, "2024-01-10"),
		AssignedUserID: f.userA,
		StatusID:       f.statusID,
	})
	require.ErrorIs(t, err, ErrSchedulingConflict)
	assert.Len(t, f.tasks.tasks, 1)
}

func TestCreateSameRangeDifferentUsers(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.userA, "2024-01-01", "2024-01-05")
	f.create(t, f.userB, "2024-01-01", "2024-01-05")

	assert.Len(t, f.tasks.tasks, 2)
	assertLedgerMirrors(t, f.tasks, f.ledger)
	assertNoUserOverlap(t, f.tasks)
}

func TestUpdateOwnRangeSelfExcluded(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")

	updated, err := f.svc.Update(context.Background(), task.ID, UpdateTaskInput{
		StartDate: dateptr(t, "2024-01-02"),
		EndDate:   dateptr(t, "2024-01-06"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", updated.StartDate.String())
	assert.Equal(t, "2024-01-06", updated.EndDate.String())
	assertLedgerMirrors(t, f.tasks, f.ledger)
}

func TestUpdateUnchangedScheduleSkipsScan(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")
	scansAfterCreate := f.tasks.overlapScans

	_, err := f.svc.Update(context.Background(), task.ID, UpdateTaskInput{
		StartDate:      dateptr(t, "2024-01-01"),
		EndDate:        dateptr(t, "2024-01-05"),
		AssignedUserID: &f.userA,
	})
	require.NoError(t, err)
	assert.Equal(t, scansAfterCreate, f.tasks.overlapScans,
		"resubmitting the current schedule must not run the conflict scan")
}

func TestUpdateRejectsOverlapWithOtherTask(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.userA, "2024-01-01", "2024-01-05")
	task := f.create(t, f.userA, "2024-01-10", "2024-01-15")

	_, err := f.svc.Update(context.Background(), task.ID, UpdateTaskInput{
		StartDate: dateptr(t, "2024-01-04"),
	})
	require.ErrorIs(t, err, ErrSchedulingConflict)

	// nothing moved
	current, getErr := f.svc.Get(context.Background(), task.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "2024-01-10", current.StartDate.String())
	assertLedgerMirrors(t, f.tasks, f.ledger)
}

func TestUpdateClearsDescription(t *testing.T) {
	f := newFixture(t)
	task, err := f.svc.Create(context.Background(), CreateTaskInput{
		Title:          "with description",
		Description:    "details",
		StartDate:      date(t, "2024-01-01"),
		EndDate:        date(t, "2024-01-05"),
		AssignedUserID: f.userA,
		StatusID:       f.statusID,
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), task.ID, UpdateTaskInput{
		Description: strptr(""),
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Description)
}

func TestUpdateUnknownTask(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), uuid.NewString(), UpdateTaskInput{Title: strptr("x")})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestReassignToSameUserIsNoOp(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")

	upsertsBefore := f.ledger.upserts
	jobsBefore := len(f.notifier.jobs)
	eventsBefore := len(f.broadcaster.events)
	scansBefore := f.tasks.overlapScans

	got, err := f.svc.Reassign(context.Background(), task.ID, f.userA)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, f.userA, got.AssignedUserID)

	assert.Equal(t, upsertsBefore, f.ledger.upserts)
	assert.Equal(t, jobsBefore, len(f.notifier.jobs))
	assert.Equal(t, eventsBefore, len(f.broadcaster.events))
	assert.Equal(t, scansBefore, f.tasks.overlapScans)
}

func TestReassignConflictKeepsCurrentAssignee(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")
	f.create(t, f.userB, "2024-01-03", "2024-01-08")

	_, err := f.svc.Reassign(context.Background(), task.ID, f.userB)
	require.ErrorIs(t, err, ErrSchedulingConflict)

	current, getErr := f.svc.Get(context.Background(), task.ID)
	require.NoError(t, getErr)
	assert.Equal(t, f.userA, current.AssignedUserID)
	assertLedgerMirrors(t, f.tasks, f.ledger)
}

func TestReassignMovesLedgerAndNotifies(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")

	got, err := f.svc.Reassign(context.Background(), task.ID, f.userB)
	require.NoError(t, err)
	assert.Equal(t, f.userB, got.AssignedUserID)
	assertLedgerMirrors(t, f.tasks, f.ledger)

	require.NotEmpty(t, f.notifier.jobs)
	last := f.notifier.jobs[len(f.notifier.jobs)-1]
	assert.Equal(t, recordedJob{f.userB, task.ID, ActionReassigned}, last)

	lastEvent := f.broadcaster.events[len(f.broadcaster.events)-1]
	assert.Equal(t, recordedEvent{EventTaskReassigned, task.ID}, lastEvent)
}

func TestDeleteFreesRange(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")
	jobsBefore := len(f.notifier.jobs)

	require.NoError(t, f.svc.Delete(context.Background(), task.ID))
	assert.Empty(t, f.ledger.rows)
	assert.Equal(t, jobsBefore, len(f.notifier.jobs), "delete sends no notification")

	// old range is free again
	f.create(t, f.userA, "2024-01-01", "2024-01-05")
	assertLedgerMirrors(t, f.tasks, f.ledger)
}

func TestDeleteUnknownTask(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Delete(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestNotificationJobsPerOperation(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")

	require.Len(t, f.notifier.jobs, 1)
	assert.Equal(t, recordedJob{f.userA, task.ID, ActionCreated}, f.notifier.jobs[0])

	// title-only update: no notification
	_, err := f.svc.Update(context.Background(), task.ID, UpdateTaskInput{Title: strptr("renamed")})
	require.NoError(t, err)
	assert.Len(t, f.notifier.jobs, 1)

	// assignee change through update: reassigned notification
	_, err = f.svc.Update(context.Background(), task.ID, UpdateTaskInput{AssignedUserID: &f.userB})
	require.NoError(t, err)
	require.Len(t, f.notifier.jobs, 2)
	assert.Equal(t, recordedJob{f.userB, task.ID, ActionReassigned}, f.notifier.jobs[1])
}

func TestEnqueueFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("queue closed")

	task, err := f.svc.Create(context.Background(), CreateTaskInput{
		Title:          "still created",
		StartDate:      date(t, "2024-01-01"),
		EndDate:        date(t, "2024-01-05"),
		AssignedUserID: f.userA,
		StatusID:       f.statusID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assertLedgerMirrors(t, f.tasks, f.ledger)
}

func TestBroadcastEventKinds(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")
	_, err := f.svc.Update(context.Background(), task.ID, UpdateTaskInput{Title: strptr("renamed")})
	require.NoError(t, err)
	_, err = f.svc.Reassign(context.Background(), task.ID, f.userB)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(context.Background(), task.ID))

	var kinds []string
	for _, e := range f.broadcaster.events {
		kinds = append(kinds, e.event)
	}
	assert.Equal(t, []string{EventTaskCreated, EventTaskUpdated, EventTaskReassigned, EventTaskDeleted}, kinds)
}

func TestNoOverlapInvariantUnderMixedOperations(t *testing.T) {
	f := newFixture(t)

	a := f.create(t, f.userA, "2024-01-01", "2024-01-05")
	f.create(t, f.userA, "2024-02-01", "2024-02-05")
	f.create(t, f.userB, "2024-01-03", "2024-01-04")

	_, err := f.svc.Update(context.Background(), a.ID, UpdateTaskInput{
		StartDate: dateptr(t, "2024-01-06"),
		EndDate:   dateptr(t, "2024-01-10"),
	})
	require.NoError(t, err)

	// A now sits after B's booking, so the reassign is allowed
	_, err = f.svc.Reassign(context.Background(), a.ID, f.userB)
	require.NoError(t, err)

	assertNoUserOverlap(t, f.tasks)
	assertLedgerMirrors(t, f.tasks, f.ledger)
}

func TestConcurrentCreatesSameUserSerialize(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), CreateTaskInput{
				Title:          "racer",
				StartDate:      date(t, "2024-03-01"),
				EndDate:        date(t, "2024-03-05"),
				AssignedUserID: f.userA,
				StatusID:       f.statusID,
			})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrSchedulingConflict)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one racing create may win")
	assertNoUserOverlap(t, f.tasks)
	assertLedgerMirrors(t, f.tasks, f.ledger)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.userA, "2024-01-01", "2024-01-05")
	task, err := f.svc.Create(context.Background(), CreateTaskInput{
		Title:          "Deploy Search Cluster",
		Description:    "rollout plan",
		StartDate:      date(t, "2024-02-01"),
		EndDate:        date(t, "2024-02-05"),
		AssignedUserID: f.userB,
		StatusID:       f.statusID,
	})
	require.NoError(t, err)

	got, err := f.svc.List(context.Background(), repository.TaskFilters{Search: "search clu"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, task.ID, got[0].ID)

	got, err = f.svc.List(context.Background(), repository.TaskFilters{AssignedUserID: f.userA})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestTimestampsAdvanceOnUpdate(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.userA, "2024-01-01", "2024-01-05")

	time.Sleep(5 * time.Millisecond)
	updated, err := f.svc.Update(context.Background(), task.ID, UpdateTaskInput{Title: strptr("renamed")})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
}
