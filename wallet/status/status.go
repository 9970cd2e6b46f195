// Package status implements the asynchronous-fetch lifecycle shared
// by every cached entity kind in the wallet state: token balances,
// token histories, swap proposals, and proposal token-cache entries.
package status

import "time"

// Status is the type of a lifecycle-stage constant.
type Status string

// Lifecycle-stage constants.
const (
	// Absent is the zero Status. An entity whose Status is Absent
	// has never been observed; Absent also appears as the OldStatus
	// of an entity's first transition.
	Absent Status = ""

	Loading     Status = "loading"
	Ready       Status = "ready"
	Failed      Status = "failed"
	Invalidated Status = "invalidated"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// Entity is a cached record of kind T together with its fetch
// lifecycle. It is pure data, designed to be serializable to and
// from JSON.
//
// OldStatus always holds the status the entity had immediately
// before the latest transition, so callers can tell a first load
// (OldStatus == Absent) from a refresh.
type Entity[T any] struct {
	Status    Status
	OldStatus Status
	UpdatedAt time.Time
	Data      T
}

// Next returns a copy of e moved to the given status, keeping Data.
// Any status is accepted from any state; staleness is the caller's
// concern.
func Next[T any](e Entity[T], next Status) Entity[T] {
	e.Status, e.OldStatus = next, e.Status
	if next == Ready {
		e.UpdatedAt = timeNow()
	}
	return e
}

// NextData is Next with a data replacement.
func NextData[T any](e Entity[T], next Status, data T) Entity[T] {
	e = Next(e, next)
	e.Data = data
	return e
}

// Fail moves e to Failed and clears its data.
func Fail[T any](e Entity[T]) Entity[T] {
	var zero T
	return NextData(e, Failed, zero)
}
