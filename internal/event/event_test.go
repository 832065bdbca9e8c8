package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validBody = `{
  "series": {"id": 1, "title": "Fake Series"},
  "episodes": [{"seasonNumber": 1, "episodeNumber": 1, "title": "Ep 1", "seriesId": 1}],
  "eventType": "Grab"
}`

func TestParseValidBody(t *testing.T) {
	e, err := Parse([]byte(validBody))
	require.NoError(t, err)
	require.Equal(t, "Fake Series", e.Series.Title)
	require.Equal(t, KindGrab, e.EventType)
	require.Len(t, e.Episodes, 1)
}

func TestParseMissingSeriesTitleFails(t *testing.T) {
	_, err := Parse([]byte(`{"episodes": [{"seasonNumber":1,"episodeNumber":1}], "eventType": "Grab"}`))
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestParseMissingEpisodesFails(t *testing.T) {
	_, err := Parse([]byte(`{"series": {"title": "X"}, "eventType": "Grab"}`))
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestParseMissingEventTypeDefaultsToTest(t *testing.T) {
	e, err := Parse([]byte(`{"series": {"title": "X"}, "episodes": [{"seasonNumber":1,"episodeNumber":1}]}`))
	require.NoError(t, err)
	require.Equal(t, KindTest, e.EventType)
}

func TestParseIgnoresUnknownFields(t *testing.T) {
	body := `{
	  "series": {"title": "X"},
	  "episodes": [{"seasonNumber":1,"episodeNumber":1}],
	  "eventType": "Grab",
	  "somethingUnexpected": {"a": 1}
	}`
	_, err := Parse([]byte(body))
	require.NoError(t, err)
}

func TestQualityFallback(t *testing.T) {
	e := Event{}
	require.Equal(t, "None", e.Quality())

	e.Release = &Release{Quality: "release-q"}
	require.Equal(t, "release-q", e.Quality())

	e.EpisodeFile = &EpisodeFile{Quality: "file-q"}
	require.Equal(t, "file-q", e.Quality())
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	require.ErrorIs(t, err, ErrMalformedEvent)
}
