// Package progress tracks how far members are through the courses they
// bought. Courses of a series unlock strictly in series order.
package progress

import (
	"errors"
	"sort"

	"github.com/inchambers/commerce/core/entitlement"
)

type State string

const (
	Locked     State = "Locked"
	Unlocked   State = "Unlocked"
	InProgress State = "InProgress"
	Completed  State = "Completed"
)

var (
	// ErrPreviousIncomplete is returned for a series course whose
	// predecessor is not completed yet.
	ErrPreviousIncomplete = errors.New("complete the previous course in the series first")
	ErrNotInSeries        = errors.New("course is not part of this series")
)

// Row is a series progress row together with its gate state.
type Row struct {
	entitlement.SeriesProgress
	State State `json:"state"`
}

type ProgressUp struct {
	Progress *float64 `json:"progress" validate:"required,gte=0,lte=1"`
}

// Rows computes the gate state of every row of a membership.
func Rows(sp []entitlement.SeriesProgress) []Row {
	sorted := make([]entitlement.SeriesProgress, len(sp))
	copy(sorted, sp)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	rows := make([]Row, len(sorted))
	for i, p := range sorted {
		rows[i] = Row{SeriesProgress: p, State: state(sorted, i)}
	}
	return rows
}

// Gate returns the row of courseID if the member may open it. The first
// course is always open; any other needs the course before it
// completed.
func Gate(sp []entitlement.SeriesProgress, courseID string) (Row, error) {
	rows := Rows(sp)
	for i, r := range rows {
		if r.CourseID != courseID {
			continue
		}
		if r.State == Locked {
			return r, &LockedError{Previous: rows[i-1].CourseID}
		}
		return r, nil
	}
	return Row{}, ErrNotInSeries
}

// LockedError matches ErrPreviousIncomplete and names the course that
// has to be completed first.
type LockedError struct {
	Previous string
}

func (e *LockedError) Error() string { return ErrPreviousIncomplete.Error() }

func (e *LockedError) Is(target error) bool { return target == ErrPreviousIncomplete }

func state(sorted []entitlement.SeriesProgress, i int) State {
	p := sorted[i]
	switch {
	case p.IsCompleted:
		return Completed
	case i > 0 && !sorted[i-1].IsCompleted:
		return Locked
	case p.Progress.IsPositive():
		return InProgress
	}
	return Unlocked
}
