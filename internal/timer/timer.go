// Package timer decides when an account may enter a room. Rooms are ordered
// and a fixed cooldown must elapse between completing one room and becoming
// eligible for the next. Evaluation is pure: callers supply the clock, and
// instead of logging, every check returns a decision trace naming the rule
// that settled it.
package timer

import (
	"time"

	"jmdev.ca/glade-room-bot/internal/ledger"
)

// Cooldown is the minimum elapsed time between completing room N and becoming
// eligible for room N+1.
const Cooldown = 24 * time.Hour

// Rule identifies which readiness rule settled an evaluation.
type Rule string

const (
	RuleRoomUnplayed     Rule = "room_unplayed"
	RuleAlreadyPlayed    Rule = "already_played"
	RulePrereqIncomplete Rule = "prerequisite_incomplete"
	RuleBadTimestamp     Rule = "timestamp_unparseable"
	RuleCooldownActive   Rule = "cooldown_active"
	RuleCooldownElapsed  Rule = "cooldown_elapsed"
	RuleInvalidRoom      Rule = "invalid_room"
)

// Trace is the structured outcome of a readiness evaluation: the verdict plus
// the rule and field values it was derived from.
type Trace struct {
	Email     string
	Room      int
	Ready     bool
	Rule      Rule
	PrereqAt  string        // raw prerequisite timestamp that was read, if any
	Elapsed   time.Duration // time since the prerequisite room, when computable
	Remaining time.Duration // cooldown remaining, zero once elapsed
}

// Evaluate checks whether an account may enter the given room at time now.
//
// Room 1 is ungated: any account that has not completed it is eligible.
// Rooms 2 and 3 require the previous room completed, the room itself not yet
// played, and Cooldown elapsed since the previous room's timestamp. A missing
// or unparseable prerequisite timestamp fails closed, including the
// inconsistent case of a completed prerequisite with an empty timestamp.
func Evaluate(account *ledger.Account, room int, now time.Time) Trace {
	trace := Trace{Email: account.Email, Room: room}

	if room < 1 || room > ledger.NumRooms {
		trace.Rule = RuleInvalidRoom
		return trace
	}

	if room == 1 {
		if account.Room(1).Played {
			trace.Rule = RuleAlreadyPlayed
			return trace
		}
		trace.Ready = true
		trace.Rule = RuleRoomUnplayed
		return trace
	}

	prereq := account.Room(room - 1)
	if !prereq.Played {
		trace.Rule = RulePrereqIncomplete
		return trace
	}
	if account.Room(room).Played {
		trace.Rule = RuleAlreadyPlayed
		return trace
	}

	trace.PrereqAt = prereq.PlayedAt
	playedAt, ok := ledger.ParseTimestamp(prereq.PlayedAt)
	if !ok {
		trace.Rule = RuleBadTimestamp
		return trace
	}

	trace.Elapsed = now.Sub(playedAt)
	if trace.Elapsed >= Cooldown {
		trace.Ready = true
		trace.Rule = RuleCooldownElapsed
		return trace
	}

	trace.Rule = RuleCooldownActive
	trace.Remaining = Cooldown - trace.Elapsed
	return trace
}

// IsReady reports whether the account may enter the room at time now.
func IsReady(account *ledger.Account, room int, now time.Time) bool {
	return Evaluate(account, room, now).Ready
}

// TimeUntilReady returns the remaining cooldown before the account may enter
// the room, clamped to zero once elapsed. The second result is false when the
// wait is not computable: the prerequisite room was never completed, its
// timestamp is unusable, or the room number is invalid.
func TimeUntilReady(account *ledger.Account, room int, now time.Time) (time.Duration, bool) {
	if room == 1 {
		return 0, true
	}
	if room < 1 || room > ledger.NumRooms {
		return 0, false
	}

	prereq := account.Room(room - 1)
	if !prereq.Played {
		return 0, false
	}
	playedAt, ok := ledger.ParseTimestamp(prereq.PlayedAt)
	if !ok {
		return 0, false
	}

	elapsed := now.Sub(playedAt)
	if elapsed >= Cooldown {
		return 0, true
	}
	return Cooldown - elapsed, true
}

// FilterReady returns the accounts eligible for the room at time now,
// preserving input order. Callers needing a frozen snapshot across several
// calls must capture now once and reuse it.
func FilterReady(accounts []*ledger.Account, room int, now time.Time) []*ledger.Account {
	ready := []*ledger.Account{}
	for _, account := range accounts {
		if IsReady(account, room, now) {
			ready = append(ready, account)
		}
	}
	return ready
}
