package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clocksync.service/internal/core/model"
)

type fakeLocker struct {
	admits    []string
	completes []string
	err       error
}

func (f *fakeLocker) Admit(ctx context.Context, key string) (bool, error) {
	f.admits = append(f.admits, key)
	return true, f.err
}

func (f *fakeLocker) Complete(ctx context.Context, key string) error {
	f.completes = append(f.completes, key)
	return f.err
}

func (f *fakeLocker) Exists(ctx context.Context, key string) (bool, error) {
	return false, f.err
}

type fakeLookup map[string]model.Employee

func (f fakeLookup) Lookup(id string) (model.Employee, bool) {
	emp, ok := f[id]
	return emp, ok
}

type presenceCall struct {
	extensionID string
	state       model.Presence
}

type fakePresence struct {
	calls []presenceCall
	err   error
}

func (f *fakePresence) SetPresence(ctx context.Context, extensionID string, state model.Presence) error {
	f.calls = append(f.calls, presenceCall{extensionID, state})
	return f.err
}

type fakeBoard struct {
	updates []model.StatusUpdate
	err     error
}

func (f *fakeBoard) PushStatus(ctx context.Context, update model.StatusUpdate) (int, error) {
	f.updates = append(f.updates, update)
	return 2, f.err
}

type fixture struct {
	locker   *fakeLocker
	presence *fakePresence
	board    *fakeBoard
	disp     *Dispatcher
}

func newFixture(lookup fakeLookup) *fixture {
	f := &fixture{
		locker:   &fakeLocker{},
		presence: &fakePresence{},
		board:    &fakeBoard{},
	}
	f.disp = NewDispatcher(f.locker, lookup, f.presence, f.board)
	f.disp.now = func() time.Time { return time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC) }
	return f
}

func intPtr(n int) *int { return &n }

func clockInEvent() model.TimesheetEvent {
	return model.TimesheetEvent{
		Action:          model.ActionClockIn,
		DesiredPresence: model.PresenceAvailable,
		EmployeeID:      intPtr(5),
		DedupeKey:       "tci_c09011f0",
		TimesheetDate:   "2023-11-14",
	}
}

func TestProcessClockInHappyPath(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})

	f.disp.Process(context.Background(), clockInEvent())

	require.Len(t, f.presence.calls, 1)
	assert.Equal(t, "305", f.presence.calls[0].extensionID)
	assert.Equal(t, model.PresenceAvailable, f.presence.calls[0].state)

	require.Len(t, f.board.updates, 1)
	assert.Equal(t, "5", f.board.updates[0].EmployeeID)
	assert.Equal(t, "Jane Doe", f.board.updates[0].Name)
	assert.Equal(t, model.StatusClockedIn, f.board.updates[0].ClockStatus)

	assert.Equal(t, []string{"tci_c09011f0"}, f.locker.completes)
}

func TestProcessSequencesPresenceBeforeBoard(t *testing.T) {
	var order []string
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})
	f.disp.presence = presenceFunc(func(context.Context, string, model.Presence) error {
		order = append(order, "presence")
		return nil
	})
	f.disp.board = boardFunc(func(context.Context, model.StatusUpdate) (int, error) {
		order = append(order, "board")
		return 0, nil
	})

	f.disp.Process(context.Background(), clockInEvent())

	assert.Equal(t, []string{"presence", "board"}, order)
}

type presenceFunc func(ctx context.Context, extensionID string, state model.Presence) error

func (fn presenceFunc) SetPresence(ctx context.Context, extensionID string, state model.Presence) error {
	return fn(ctx, extensionID, state)
}

type boardFunc func(ctx context.Context, update model.StatusUpdate) (int, error)

func (fn boardFunc) PushStatus(ctx context.Context, update model.StatusUpdate) (int, error) {
	return fn(ctx, update)
}

func TestProcessSkipsPastDatedTimesheet(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})

	ev := clockInEvent()
	ev.TimesheetDate = "2023-11-01"
	f.disp.Process(context.Background(), ev)

	assert.Empty(t, f.presence.calls)
	assert.Empty(t, f.board.updates)
	assert.Equal(t, []string{"tci_c09011f0"}, f.locker.completes)
}

func TestProcessMissingDateStillRuns(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})

	ev := clockInEvent()
	ev.TimesheetDate = ""
	f.disp.Process(context.Background(), ev)

	assert.Len(t, f.presence.calls, 1)
	assert.Len(t, f.board.updates, 1)
}

func TestProcessUnmappedEmployeeCompletesWithoutSideEffects(t *testing.T) {
	f := newFixture(fakeLookup{})

	f.disp.Process(context.Background(), clockInEvent())

	assert.Empty(t, f.presence.calls)
	assert.Empty(t, f.board.updates)
	assert.Equal(t, []string{"tci_c09011f0"}, f.locker.completes)
}

func TestProcessEmployeeWithoutExtensionSkipped(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe"}})

	f.disp.Process(context.Background(), clockInEvent())

	assert.Empty(t, f.presence.calls)
	assert.Empty(t, f.board.updates)
	assert.Len(t, f.locker.completes, 1)
}

func TestProcessMissingEmployeeIDSkipped(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})

	ev := clockInEvent()
	ev.EmployeeID = nil
	f.disp.Process(context.Background(), ev)

	assert.Empty(t, f.presence.calls)
	assert.Len(t, f.locker.completes, 1)
}

func TestProcessPresenceFailureStillUpdatesBoard(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})
	f.presence.err = errors.New("pbx is down")

	f.disp.Process(context.Background(), clockInEvent())

	assert.Len(t, f.board.updates, 1)
	assert.Len(t, f.locker.completes, 1)
}

func TestProcessBoardFailureStillCompletes(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})
	f.board.err = errors.New("board is down")

	f.disp.Process(context.Background(), clockInEvent())

	assert.Equal(t, []string{"tci_c09011f0"}, f.locker.completes)
}

func TestProcessCompletesExactlyOnce(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})

	f.disp.Process(context.Background(), clockInEvent())

	assert.Len(t, f.locker.completes, 1)
}

func TestProcessWithoutKeyNeverTouchesLocker(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})

	ev := clockInEvent()
	ev.DedupeKey = ""
	f.disp.Process(context.Background(), ev)

	assert.Empty(t, f.locker.completes)
	assert.Len(t, f.board.updates, 1)
}

func TestProcessBreakEndShowsClockedIn(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})

	ev := clockInEvent()
	ev.Action = model.ActionBreakEnd
	ev.DedupeKey = "tbe_bd23a251"
	f.disp.Process(context.Background(), ev)

	require.Len(t, f.board.updates, 1)
	assert.Equal(t, model.StatusClockedIn, f.board.updates[0].ClockStatus)
}

func TestProcessBreakStartShowsOnBreak(t *testing.T) {
	f := newFixture(fakeLookup{"5": {ID: "5", Name: "Jane Doe", ExtensionID: "305"}})

	ev := clockInEvent()
	ev.Action = model.ActionBreakStart
	ev.DesiredPresence = model.PresenceUnavailable
	ev.DedupeKey = "tbs_79f58ead"
	f.disp.Process(context.Background(), ev)

	require.Len(t, f.presence.calls, 1)
	assert.Equal(t, model.PresenceUnavailable, f.presence.calls[0].state)
	require.Len(t, f.board.updates, 1)
	assert.Equal(t, model.StatusOnBreak, f.board.updates[0].ClockStatus)
}
