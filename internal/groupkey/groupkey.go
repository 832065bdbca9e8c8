// Package groupkey derives the canonical grouping key for a buffered event
// and normalises ambiguous event kinds before that key is constructed.
package groupkey

import "github.com/cbackas/hookbuffer/internal/event"

// Key is the unit of outbound message grouping: (series id, normalised
// event kind, season number). Equality and ordering are lexicographic over
// the three fields in that order.
type Key struct {
	SeriesID     uint64
	Kind         event.Kind
	SeasonNumber uint64
}

// Less implements the lexicographic total order over Key. message.Build
// does not use it: groups there come out in order of first appearance.
func (k Key) Less(other Key) bool {
	if k.SeriesID != other.SeriesID {
		return k.SeriesID < other.SeriesID
	}
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	return k.SeasonNumber < other.SeasonNumber
}

// acceptedKinds is the set of normalised event kinds the debounce table
// will admit. Anything else is rejected at ingress with UnsupportedEvent.
var acceptedKinds = map[event.Kind]bool{
	event.KindGrab:     true,
	event.KindDownload: true,
	event.KindUpgrade:  true,
}

// Normalise rewrites Download+IsUpgrade=true to Upgrade. It is idempotent
// and must run before both grouping and message rendering so group-key
// equality stays consistent with verb/color selection.
func Normalise(e event.Event) event.Event {
	if e.EventType == event.KindDownload && e.IsUpgrade {
		e.EventType = event.KindUpgrade
	}
	return e
}

// Accept reports whether a normalised event kind may enter the debounce
// table. Callers must normalise before calling Accept.
func Accept(kind event.Kind) bool {
	return acceptedKinds[kind]
}

// ForEpisode derives the group key for one specific episode referenced by
// an already-normalised event. A missing series id defaults to 0.
func ForEpisode(e event.Event, ep event.Episode) Key {
	return Key{
		SeriesID:     e.Series.ID,
		Kind:         e.EventType,
		SeasonNumber: ep.SeasonNumber,
	}
}

// Pair associates one referenced episode with the event it came from, so
// per-episode fan-out can carry the full event (including its quality
// source) into each group it belongs to.
type Pair struct {
	Key     Key
	Event   event.Event
	Episode event.Episode
}

// Expand replicates an already-normalised event into one Pair per episode it
// references, since a single event may span several seasons.
func Expand(e event.Event) []Pair {
	pairs := make([]Pair, 0, len(e.Episodes))
	for _, ep := range e.Episodes {
		pairs = append(pairs, Pair{
			Key:     ForEpisode(e, ep),
			Event:   e,
			Episode: ep,
		})
	}
	return pairs
}
