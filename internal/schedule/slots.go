package schedule

// Slots walks the working window in (slot + buffer) strides and returns the
// start offsets of every candidate that fits inside the window and overlaps
// none of the occupied intervals. The cursor always advances by the full
// stride, even past a rejected candidate: slots keep a fixed cadence from the
// day's start rather than packing around occupied gaps. The result is ordered
// ascending by construction.
func Slots(day Day, occupied []Interval) []int {
	if day.Closed() || day.SlotMinutes <= 0 {
		return nil
	}

	blocked := make([]Interval, 0, len(day.Breaks)+len(occupied))
	blocked = append(blocked, day.Breaks...)
	blocked = append(blocked, occupied...)

	var starts []int
	stride := day.SlotMinutes + day.BufferMinutes
	for cursor := day.Window.Start; cursor+day.SlotMinutes <= day.Window.End; cursor += stride {
		candidate := Interval{Start: cursor, End: cursor + day.SlotMinutes}
		conflict := false
		for _, b := range blocked {
			if candidate.Overlaps(b) {
				conflict = true
				break
			}
		}
		if !conflict {
			starts = append(starts, cursor)
		}
	}
	return starts
}
