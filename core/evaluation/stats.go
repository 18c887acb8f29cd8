package evaluation

import (
	"sort"
)

// recentLimit bounds the recent-activity feed in a statistics summary.
const recentLimit = 20

type (
	// RecentEntry is one record reduced to what the dashboard feed shows.
	RecentEntry struct {
		Date     string   `json:"date"`
		Mine     bool     `json:"mine"`
		Self     *string  `json:"self"`
		Received []string `json:"received"`
		Given    []string `json:"given"`
	}

	// Statistics is the per-student rollup over every record in scope.
	Statistics struct {
		RosterID string         `json:"rosterId"`
		Received map[string]int `json:"received"`
		Given    map[string]int `json:"given"`
		Self     map[string]int `json:"self"`
		Recent   []RecentEntry  `json:"recent"`
	}
)

// aggregateRecords folds normalized records into a Statistics summary for the
// student identified by username. It is pure: records are read, never mutated.
// Records are visited newest-first by date, keeping their relative order
// within a day as the tiebreak.
func aggregateRecords(username, rosterID string, records []Record) Statistics {
	stats := Statistics{
		RosterID: rosterID,
		Received: make(map[string]int),
		Given:    make(map[string]int),
		Self:     make(map[string]int),
		Recent:   make([]RecentEntry, 0, recentLimit),
	}

	ordered := make([]Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date > ordered[j].Date })

	for _, rec := range ordered {
		mine := rec.GivenBy(username)

		entry := RecentEntry{
			Date:     rec.Date,
			Mine:     mine,
			Received: []string{},
			Given:    []string{},
		}

		for _, pe := range rec.PeerEvaluations {
			for _, n := range pe.Nominees {
				if n.Matches(username) {
					stats.Received[pe.Competency]++
					entry.Received = append(entry.Received, pe.Competency)
				}
			}
			if mine {
				stats.Given[pe.Competency]++
				entry.Given = append(entry.Given, pe.Competency)
			}
		}

		if mine && rec.SelfEvaluation != nil {
			stats.Self[rec.SelfEvaluation.Competency]++
			comp := rec.SelfEvaluation.Competency
			entry.Self = &comp
		}

		if len(stats.Recent) < recentLimit {
			stats.Recent = append(stats.Recent, entry)
		}
	}
	return stats
}

// filterRecords applies the in-memory part of a query: inclusive date bounds,
// evaluation type, and (when set) the target student.
func filterRecords(records []Record, filter *QueryFilter) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if !filter.DateRange.Contains(rec.Date) {
			continue
		}
		if !matchesFilter(rec, filter) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchesFilter(rec Record, filter *QueryFilter) bool {
	target := filter.TargetUsername
	peerHit := len(rec.PeerEvaluations) > 0
	selfHit := rec.SelfEvaluation != nil
	if target != "" {
		peerHit = rec.Nominates(target)
		selfHit = selfHit && rec.GivenBy(target)
	}

	switch filter.EvaluationType {
	case TypePeer:
		return peerHit
	case TypeSelf:
		return selfHit
	default:
		if target != "" {
			return peerHit || selfHit
		}
		return true
	}
}
