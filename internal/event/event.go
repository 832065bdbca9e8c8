// Package event defines the wire and in-memory representation of an inbound
// episode notification and its parsing from the producer's JSON payload.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind enumerates the event types a producer may emit. Only Grab, Download
// and Upgrade are accepted into the debounce table (see groupkey.Accept);
// the others remain valid values for events carried through the data model.
type Kind string

const (
	KindTest                      Kind = "Test"
	KindGrab                      Kind = "Grab"
	KindDownload                  Kind = "Download"
	KindUpgrade                   Kind = "Upgrade"
	KindRename                    Kind = "Rename"
	KindSeriesAdd                 Kind = "SeriesAdd"
	KindSeriesDelete              Kind = "SeriesDelete"
	KindEpisodeFileDelete         Kind = "EpisodeFileDelete"
	KindHealth                    Kind = "Health"
	KindApplicationUpdate         Kind = "ApplicationUpdate"
	KindHealthRestored            Kind = "HealthRestored"
	KindManualInteractionRequired Kind = "ManualInteractionRequired"
)

// ErrMalformedEvent is returned when a required field is absent from the
// inbound JSON body.
var ErrMalformedEvent = errors.New("malformed event")

// Series identifies the show the event is about. Id and Title are the only
// fields the core relies on; everything else is preserved for later
// rendering or operator inspection but never inspected by the core.
type Series struct {
	ID        uint64 `json:"id,omitempty"`
	Title     string `json:"title"`
	IMDbID    string `json:"imdbId,omitempty"`
	Path      string `json:"path,omitempty"`
	TitleSlug string `json:"titleSlug,omitempty"`
	TVMazeID  uint64 `json:"tvMazeId,omitempty"`
	TVDBID    uint64 `json:"tvdbId,omitempty"`
	Type      string `json:"type,omitempty"`
	Year      int    `json:"year,omitempty"`
}

// Episode is one affected episode referenced by an Event.
type Episode struct {
	AirDate      string `json:"airDate,omitempty"`
	AirDateUTC   string `json:"airDateUtc,omitempty"`
	EpisodeNum   uint64 `json:"episodeNumber"`
	ID           uint64 `json:"id,omitempty"`
	Overview     string `json:"overview,omitempty"`
	SeasonNumber uint64 `json:"seasonNumber"`
	SeriesID     uint64 `json:"seriesId,omitempty"`
	Title        string `json:"title"`
}

// EpisodeFile carries the quality label for an already-imported file.
type EpisodeFile struct {
	Quality string `json:"quality"`
}

// Release carries the quality label for a grabbed release, before import.
type Release struct {
	Quality string `json:"quality,omitempty"`
}

// Event is the strongly-typed representation of an inbound episode action.
// Fields beyond series/episodes/event-kind are optional and preserved as-is
// for later rendering.
type Event struct {
	Series      Series       `json:"series"`
	Episodes    []Episode    `json:"episodes"`
	EventType   Kind         `json:"eventType"`
	EpisodeFile *EpisodeFile `json:"episodeFile,omitempty"`
	Release     *Release     `json:"release,omitempty"`
	IsUpgrade   bool         `json:"isUpgrade,omitempty"`
}

// rawEvent mirrors Event but leaves EventType as a string so Parse can apply
// the "missing event-kind defaults to Test" rule from the grouping
// invariant before the value is used anywhere.
type rawEvent struct {
	Series      Series       `json:"series"`
	Episodes    []Episode    `json:"episodes"`
	EventType   string       `json:"eventType"`
	EpisodeFile *EpisodeFile `json:"episodeFile,omitempty"`
	Release     *Release     `json:"release,omitempty"`
	IsUpgrade   bool         `json:"isUpgrade,omitempty"`
}

// Parse decodes an inbound JSON body into an Event. Unknown fields are
// ignored. It fails with ErrMalformedEvent when series.title is absent or
// the episodes array is absent or empty. A missing event-kind is not an
// error: it defaults to Test.
func Parse(body []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	if raw.Series.Title == "" {
		return Event{}, fmt.Errorf("%w: series.title is required", ErrMalformedEvent)
	}
	if len(raw.Episodes) == 0 {
		return Event{}, fmt.Errorf("%w: episodes is required", ErrMalformedEvent)
	}

	kind := Kind(raw.EventType)
	if kind == "" {
		kind = KindTest
	}

	return Event{
		Series:      raw.Series,
		Episodes:    raw.Episodes,
		EventType:   kind,
		EpisodeFile: raw.EpisodeFile,
		Release:     raw.Release,
		IsUpgrade:   raw.IsUpgrade,
	}, nil
}

// Quality resolves the quality label for the event in priority order:
// episode-file quality, then release quality, then the literal "None".
func (e Event) Quality() string {
	if e.EpisodeFile != nil && e.EpisodeFile.Quality != "" {
		return e.EpisodeFile.Quality
	}
	if e.Release != nil && e.Release.Quality != "" {
		return e.Release.Quality
	}
	return "None"
}
