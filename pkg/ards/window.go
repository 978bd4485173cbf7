package ards

import "time"

// Window is the diagnosis window scoped to one ICU stay. Start is the ICU
// admission; observations outside [Start, End] are ignored even if they
// would otherwise qualify.
type Window struct {
	Start time.Time
	End   time.Time
}

func NewWindow(icuIn time.Time, hours int) Window {
	return Window{Start: icuIn, End: icuIn.Add(time.Duration(hours) * time.Hour)}
}

// Contains is inclusive at both edges: an observation charted exactly at
// admission or exactly at hour 48 still counts.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}
