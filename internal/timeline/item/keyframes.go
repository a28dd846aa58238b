package item

import (
	"math"
	"slices"
	"sort"
)

// Keyframe is one animated value at a frame offset from the item start.
type Keyframe struct {
	Frame int
	Value float64
}

// Keyframes holds keyframed parameters by name. Each list is sorted by frame
// with unique frames.
type Keyframes map[string][]Keyframe

// Clone returns a deep copy.
func (k Keyframes) Clone() Keyframes {
	if k == nil {
		return nil
	}
	out := make(Keyframes, len(k))
	for name, frames := range k {
		out[name] = slices.Clone(frames)
	}
	return out
}

// Len returns the total number of keyframes across parameters.
func (k Keyframes) Len() int {
	n := 0
	for _, frames := range k {
		n += len(frames)
	}
	return n
}

// Set inserts or replaces the keyframe of param at frame.
func (k Keyframes) Set(param string, frame int, value float64) {
	frames := k[param]
	i := sort.Search(len(frames), func(i int) bool { return frames[i].Frame >= frame })
	if i < len(frames) && frames[i].Frame == frame {
		frames[i].Value = value
		return
	}
	k[param] = slices.Insert(frames, i, Keyframe{Frame: frame, Value: value})
}

// Get returns the keyframe of param at exactly frame.
func (k Keyframes) Get(param string, frame int) (float64, bool) {
	for _, kf := range k[param] {
		if kf.Frame == frame {
			return kf.Value, true
		}
	}
	return 0, false
}

// Rescale maps every keyframe from a time axis of oldDuration frames onto
// newDuration frames. Keyframes that land on the same frame keep the later
// value. The receiver is not modified.
func (k Keyframes) Rescale(oldDuration, newDuration int) Keyframes {
	if k == nil {
		return nil
	}
	if oldDuration <= 0 || oldDuration == newDuration {
		return k.Clone()
	}
	ratio := float64(newDuration) / float64(oldDuration)
	out := make(Keyframes, len(k))
	for name, frames := range k {
		scaled := make([]Keyframe, 0, len(frames))
		for _, kf := range frames {
			f := int(math.Round(float64(kf.Frame) * ratio))
			if n := len(scaled); n > 0 && scaled[n-1].Frame == f {
				scaled[n-1].Value = kf.Value
				continue
			}
			scaled = append(scaled, Keyframe{Frame: f, Value: kf.Value})
		}
		out[name] = scaled
	}
	return out
}

// Slice keeps the keyframes in [from, to) and shifts them so that from
// becomes frame zero.
func (k Keyframes) Slice(from, to int) Keyframes {
	if k == nil {
		return nil
	}
	out := make(Keyframes, len(k))
	for name, frames := range k {
		var kept []Keyframe
		for _, kf := range frames {
			if kf.Frame >= from && kf.Frame < to {
				kept = append(kept, Keyframe{Frame: kf.Frame - from, Value: kf.Value})
			}
		}
		if len(kept) > 0 {
			out[name] = kept
		}
	}
	return out
}
