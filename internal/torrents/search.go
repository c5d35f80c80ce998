// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrents

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/autobrr/updatorr/internal/deluge"
)

var searchSeparators = strings.NewReplacer(".", " ", "_", " ", "-", " ", "[", " ", "]", " ", "(", " ", ")", " ", "{", " ", "}", " ")

func normalizeForSearch(text string) string {
	return strings.Join(strings.Fields(searchSeparators.Replace(strings.ToLower(text))), " ")
}

// Filter keeps torrents matching query, best matches first. Substring hits on
// name, state or id rank above normalized hits, which rank above fuzzy name hits.
func Filter(list []deluge.Torrent, query string) []deluge.Torrent {
	query = strings.TrimSpace(query)
	if query == "" {
		return list
	}

	type match struct {
		torrent deluge.Torrent
		score   int
	}

	queryLower := strings.ToLower(query)
	queryNormalized := normalizeForSearch(query)

	var matches []match
	for _, t := range list {
		if strings.Contains(strings.ToLower(t.Name), queryLower) ||
			strings.EqualFold(t.State, query) ||
			strings.HasPrefix(strings.ToLower(t.ID), queryLower) {
			matches = append(matches, match{torrent: t, score: 0})
			continue
		}

		nameNormalized := normalizeForSearch(t.Name)
		if strings.Contains(nameNormalized, queryNormalized) {
			matches = append(matches, match{torrent: t, score: 1})
			continue
		}

		// fuzzy only on the name, and only close matches
		if fuzzy.MatchNormalizedFold(queryNormalized, nameNormalized) {
			if score := fuzzy.RankMatchNormalizedFold(queryNormalized, nameNormalized); score < 10 {
				matches = append(matches, match{torrent: t, score: 2 + score})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score < matches[j].score })

	out := make([]deluge.Torrent, len(matches))
	for i, m := range matches {
		out[i] = m.torrent
	}
	return out
}
