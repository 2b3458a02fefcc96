package core

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"clocksync.service/internal/core/model"
	"clocksync.service/internal/dedupe"
	"clocksync.service/internal/ports/presence"
	"clocksync.service/internal/ports/statusboard"
)

// EmployeeLookup resolves a time-and-attendance employee id to a directory
// mapping.
type EmployeeLookup interface {
	Lookup(id string) (model.Employee, bool)
}

// Dispatcher fans one admitted timesheet event out to the phone-presence API
// and the status board. The two calls are sequenced but independent: either
// may fail without aborting the other, and neither failure reaches the
// webhook response.
type Dispatcher struct {
	locker   dedupe.Locker
	lookup   EmployeeLookup
	presence presence.Client
	board    statusboard.Notifier

	// now is swappable for tests; the past-date guard compares against it.
	now func() time.Time
}

// NewDispatcher wires up the side-effect pipeline with its collaborators.
func NewDispatcher(locker dedupe.Locker, lookup EmployeeLookup, presenceClient presence.Client, board statusboard.Notifier) *Dispatcher {
	return &Dispatcher{
		locker:   locker,
		lookup:   lookup,
		presence: presenceClient,
		board:    board,
		now:      time.Now,
	}
}

// Process runs the side effects for one event. The caller must have won the
// admit race for the event's dedupe key, or hold an event with no key at all.
// Whatever happens in between, the key is marked completed exactly once on
// the way out so that straggling duplicates stay suppressed without being
// retried forever.
func (d *Dispatcher) Process(ctx context.Context, event model.TimesheetEvent) {
	logger := log.Ctx(ctx).With().
		Str("action", string(event.Action)).
		Str("dedupe_key", event.DedupeKey).
		Logger()

	if event.DedupeKey != "" {
		defer func() {
			if err := d.locker.Complete(ctx, event.DedupeKey); err != nil {
				logger.Error().Err(err).Msg("Failed to mark dedupe key completed")
			}
		}()
	}

	// Backdated timesheet edits (approvals, corrections) arrive through the
	// same webhook; they must not flip anyone's live phone state.
	if event.TimesheetDate != "" {
		today := d.now().Format("2006-01-02")
		if event.TimesheetDate != today {
			logger.Info().Str("timesheet_date", event.TimesheetDate).Msg("Timesheet is not for today, skipping side effects")
			return
		}
	}

	if event.EmployeeID == nil {
		logger.Warn().Msg("Event has no employee id, skipping side effects")
		return
	}

	employeeID := strconv.Itoa(*event.EmployeeID)
	emp, ok := d.lookup.Lookup(employeeID)
	if !ok {
		logger.Warn().Str("employee_id", employeeID).Msg("No directory mapping for employee, skipping side effects")
		return
	}
	if emp.ExtensionID == "" {
		logger.Warn().Str("employee_id", employeeID).Msg("Employee has no phone extension, skipping side effects")
		return
	}

	if event.DesiredPresence != "" {
		if err := d.presence.SetPresence(ctx, emp.ExtensionID, event.DesiredPresence); err != nil {
			logger.Error().Err(err).Str("extension_id", emp.ExtensionID).Msg("Presence update failed")
		} else {
			logger.Info().Str("extension_id", emp.ExtensionID).Str("presence", string(event.DesiredPresence)).Msg("Presence updated")
		}
	}

	status, ok := event.Action.ClockStatus()
	if !ok {
		return
	}
	subscribers, err := d.board.PushStatus(ctx, model.StatusUpdate{
		EmployeeID:  employeeID,
		Name:        emp.Name,
		ClockStatus: status,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Status board update failed")
		return
	}
	logger.Info().Str("clock_status", string(status)).Int("subscribers", subscribers).Msg("Status board updated")
}
