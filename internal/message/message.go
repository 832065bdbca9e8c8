// Package message implements the message builder (C5): grouping a drained
// buffer of events by group key, deduplicating and aggregating episode
// rows, and rendering the content line, description and embed color for
// each group.
package message

import (
	"fmt"
	"sort"

	"github.com/cbackas/hookbuffer/internal/event"
	"github.com/cbackas/hookbuffer/internal/groupkey"
)

// Embed is the single rich embed carried by a BuiltMessage.
type Embed struct {
	Title       string
	Color       int
	Description string
	Type        string
}

// BuiltMessage is one outbound, ready-to-post message.
type BuiltMessage struct {
	Content string
	Embeds  []Embed
}

// row is one (season, episode) description line before rendering, tracked
// with its aggregation count.
type row struct {
	season  uint64
	episode uint64
	title   string
	quality string
	count   int
}

func verb(kind event.Kind) string {
	switch kind {
	case event.KindGrab:
		return "Grabbed"
	case event.KindDownload:
		return "Imported"
	case event.KindUpgrade:
		return "Upgraded"
	case event.KindRename:
		return "Renamed"
	default:
		return "Unknown"
	}
}

func color(kind event.Kind) int {
	switch kind {
	case event.KindTest:
		return 0x0800FF
	case event.KindGrab:
		return 0xFFC130
	case event.KindDownload:
		return 0x29A44C
	case event.KindUpgrade:
		return 0x3E6800
	case event.KindRename:
		return 0xFF00FF
	default:
		return 0xFFFFFF
	}
}

// Build groups a drained buffer by group key and renders one BuiltMessage
// per group. The buffer must be non-empty.
func Build(buffer []event.Event) []BuiltMessage {
	buckets := map[groupkey.Key][]groupkey.Pair{}
	var order []groupkey.Key

	for _, raw := range buffer {
		normalised := groupkey.Normalise(raw)
		for _, pair := range groupkey.Expand(normalised) {
			if _, seen := buckets[pair.Key]; !seen {
				order = append(order, pair.Key)
			}
			buckets[pair.Key] = append(buckets[pair.Key], pair)
		}
	}

	messages := make([]BuiltMessage, 0, len(order))
	for _, key := range order {
		messages = append(messages, buildOne(key, buckets[key]))
	}
	return messages
}

func buildOne(key groupkey.Key, pairs []groupkey.Pair) BuiltMessage {
	content := buildContent(key, pairs)
	description := buildDescription(pairs)

	return BuiltMessage{
		Content: content,
		Embeds: []Embed{{
			Title:       pairs[0].Event.Series.Title,
			Color:       color(key.Kind),
			Description: description,
			Type:        "rich",
		}},
	}
}

func buildContent(key groupkey.Key, pairs []groupkey.Pair) string {
	v := verb(key.Kind)
	seriesTitle := pairs[0].Event.Series.Title

	if len(pairs) == 1 {
		p := pairs[0]
		return fmt.Sprintf("%s: %s - %02dx%02d - %s", v, seriesTitle, p.Episode.SeasonNumber, p.Episode.EpisodeNum, p.Episode.Title)
	}
	return fmt.Sprintf("%s: %s Season %02d", v, seriesTitle, key.SeasonNumber)
}

func buildDescription(pairs []groupkey.Pair) string {
	rowsBySeasonEpisode := map[[2]uint64]*row{}
	var order [][2]uint64

	for _, p := range pairs {
		k := [2]uint64{p.Episode.SeasonNumber, p.Episode.EpisodeNum}
		existing, seen := rowsBySeasonEpisode[k]
		if !seen {
			r := &row{
				season:  p.Episode.SeasonNumber,
				episode: p.Episode.EpisodeNum,
				title:   p.Episode.Title,
				quality: p.Event.Quality(),
				count:   1,
			}
			rowsBySeasonEpisode[k] = r
			order = append(order, k)
			continue
		}
		existing.count++
	}

	rows := make([]*row, 0, len(order))
	for _, k := range order {
		rows = append(rows, rowsBySeasonEpisode[k])
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.season != b.season {
			return a.season < b.season
		}
		if a.episode != b.episode {
			return a.episode < b.episode
		}
		if a.title != b.title {
			return a.title < b.title
		}
		return a.quality < b.quality
	})

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.count == 1 {
			lines = append(lines, fmt.Sprintf("%02dx%02d - %s [%s]", r.season, r.episode, r.title, r.quality))
		} else {
			lines = append(lines, fmt.Sprintf("%02dx%02d - %s [%s] (%dx)", r.season, r.episode, r.title, r.quality, r.count))
		}
	}

	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}
