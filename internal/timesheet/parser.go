package timesheet

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"clocksync.service/internal/core/model"
)

// DefaultBreakEndWindow bounds how old a finished break may be for the
// delivery to still count as a fresh break-end. Webhook deliveries for
// already-handled breaks keep arriving long after the fact; anything older
// than this is treated as stale.
const DefaultBreakEndWindow = 180 * time.Second

var keyPrefixes = map[model.Action]string{
	model.ActionClockIn:    "tci",
	model.ActionClockOut:   "tco",
	model.ActionBreakStart: "tbs",
	model.ActionBreakEnd:   "tbe",
}

// Parser classifies raw timesheet webhook payloads. It is pure: no I/O, no
// shared state, and it never fails. Unclassifiable input comes back as an
// ignore event with a reason.
type Parser struct {
	breakEndWindow time.Duration

	// now is swappable for tests; classification of break-ends depends on
	// how long ago the break finished relative to delivery time.
	now func() time.Time
}

// NewParser creates a parser. A zero window falls back to the default.
func NewParser(breakEndWindow time.Duration) *Parser {
	if breakEndWindow <= 0 {
		breakEndWindow = DefaultBreakEndWindow
	}
	return &Parser{
		breakEndWindow: breakEndWindow,
		now:            time.Now,
	}
}

type breakSlot struct {
	startUnix int64
	endUnix   *int64
	state     string
	typeName  string
}

func (b breakSlot) inProgress() bool {
	if b.endUnix == nil {
		return true
	}
	state := strings.ToLower(b.state)
	return strings.Contains(state, "in progress") || strings.Contains(state, "started")
}

// Parse turns one decoded webhook payload into a classified event.
func (p *Parser) Parse(payload any) model.TimesheetEvent {
	envelope, _ := payload.(map[string]any)

	record := extractRecord(envelope)
	if record == nil {
		return model.TimesheetEvent{
			Action: model.ActionIgnore,
			Reason: "No timesheet object found",
		}
	}

	topic := asString(envelope["topic"])

	ev := model.TimesheetEvent{
		Action:        model.ActionIgnore,
		TimesheetID:   asInt(record["Id"]),
		EmployeeID:    asInt(record["Employee"]),
		Topic:         topic,
		TimesheetDate: asString(record["Date"]),
	}

	inProgress := asBool(record["IsInProgress"])
	startTime := asInt64(record["StartTime"])
	endTime := asInt64(record["EndTime"])
	lastBreak := latestBreakSlot(record["Slots"])

	if lastBreak != nil {
		ev.DebugBreak = &model.BreakDebug{
			StartUnix: lastBreak.startUnix,
			EndUnix:   lastBreak.endUnix,
			State:     lastBreak.state,
			TypeName:  lastBreak.typeName,
		}
	}

	switch {
	case inProgress != nil && !*inProgress && endTime != nil:
		ev.Action = model.ActionClockOut
		ev.DesiredPresence = model.PresenceUnavailable
		ev.EventUnix = endTime
		ev.Reason = "Timesheet completed with end time"

	case inProgress != nil && *inProgress && lastBreak != nil && lastBreak.inProgress():
		ev.Action = model.ActionBreakStart
		ev.DesiredPresence = model.PresenceUnavailable
		ev.EventUnix = &lastBreak.startUnix
		ev.Reason = "Most recent break is in progress"

	case inProgress != nil && *inProgress && lastBreak != nil && lastBreak.endUnix != nil &&
		p.withinBreakEndWindow(*lastBreak.endUnix):
		ev.Action = model.ActionBreakEnd
		ev.DesiredPresence = model.PresenceAvailable
		ev.EventUnix = lastBreak.endUnix
		ev.Reason = "Break ended within the delivery window"

	case inProgress != nil && *inProgress && startTime != nil && isCreation(topic, record):
		ev.Action = model.ActionClockIn
		ev.DesiredPresence = model.PresenceAvailable
		ev.EventUnix = startTime
		ev.Reason = "New timesheet started"

	default:
		ev.Reason = "No actionable event detected"
	}

	if ev.Action != model.ActionIgnore && ev.TimesheetID != nil && ev.EventUnix != nil {
		ev.DedupeKey = dedupeKey(*ev.TimesheetID, ev.Action, *ev.EventUnix)
	}

	return ev
}

func (p *Parser) withinBreakEndWindow(endUnix int64) bool {
	age := p.now().Unix() - endUnix
	if age < 0 {
		age = -age
	}
	return age <= int64(p.breakEndWindow/time.Second)
}

// isCreation distinguishes a brand-new timesheet from an edit of an existing
// one. Insert topics are explicit; otherwise a record whose created and
// modified stamps match has never been touched since creation.
func isCreation(topic string, record map[string]any) bool {
	if strings.Contains(strings.ToLower(topic), "insert") {
		return true
	}
	created := asString(record["Created"])
	modified := asString(record["Modified"])
	return created != "" && created == modified
}

// extractRecord digs the timesheet object out of whichever envelope the
// sender used this time: a data array, a data object, result, record, or the
// payload itself.
func extractRecord(envelope map[string]any) map[string]any {
	if envelope == nil {
		return nil
	}

	switch data := envelope["data"].(type) {
	case []any:
		if len(data) > 0 {
			if rec, ok := data[0].(map[string]any); ok {
				return rec
			}
		}
	case map[string]any:
		return data
	}

	if rec, ok := envelope["result"].(map[string]any); ok {
		return rec
	}
	if rec, ok := envelope["record"].(map[string]any); ok {
		return rec
	}

	for _, marker := range []string{"Id", "StartTime", "IsInProgress"} {
		if _, ok := envelope[marker]; ok {
			return envelope
		}
	}
	return nil
}

// latestBreakSlot picks the break ("B") entry with the latest start time.
func latestBreakSlot(v any) *breakSlot {
	slots, ok := v.([]any)
	if !ok {
		return nil
	}

	var latest *breakSlot
	for _, raw := range slots {
		slot, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if strings.ToUpper(asString(slot["strType"])) != "B" {
			continue
		}
		start := asInt64(slot["intUnixStart"])
		if start == nil {
			continue
		}
		b := &breakSlot{
			startUnix: *start,
			endUnix:   asInt64(slot["intUnixEnd"]),
			state:     asString(slot["strState"]),
			typeName:  asString(slot["strTypeName"]),
		}
		if latest == nil || b.startUnix > latest.startUnix {
			latest = b
		}
	}
	return latest
}

// dedupeKey derives the stable identity of one logical event. FNV-1a keeps
// the key identical across restarts and replicas for the same input.
func dedupeKey(timesheetID int, action model.Action, eventUnix int64) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%s|%d", timesheetID, action, eventUnix)
	return fmt.Sprintf("%s_%08x", keyPrefixes[action], h.Sum32())
}
