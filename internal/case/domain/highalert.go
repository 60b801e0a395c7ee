package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/citypd/platform/internal/shared/types"
)

// High-alert ranking constants
const (
	HighAlertThresholdDays = 30
	RewardPerRankPoint     = 20_000_000
)

// SuspectRecord is a suspect together with the case facts the ranking needs.
type SuspectRecord struct {
	Suspect      Suspect
	CaseStatus   CaseStatus
	CaseSeverity Severity
}

// WantedEntry is one person on the wanted list, merged across cases by
// national id.
type WantedEntry struct {
	NationalID    string     `json:"national_id,omitempty"`
	FullName      string     `json:"full_name"`
	PhotoURL      string     `json:"photo_url,omitempty"`
	SuspectIDs    []types.ID `json:"suspect_ids"`
	CaseIDs       []types.ID `json:"case_ids"`
	MaxDaysWanted int        `json:"max_days_wanted"`
	MaxSeverity   Severity   `json:"max_severity"`
	RankScore     int        `json:"rank_score"`
	Reward        int64      `json:"reward"`
	HighAlert     bool       `json:"high_alert"`
}

// RankWanted groups wanted suspects by national id (suspects without one
// stand alone), scores each group as max days wanted times max severity,
// and sorts by score, highest first. Suspects of closed or void cases are
// ignored.
func RankWanted(records []SuspectRecord, now time.Time) []WantedEntry {
	groups := make(map[string]*WantedEntry)
	var order []string

	for _, r := range records {
		s := r.Suspect
		if !s.Status.IsWanted() || r.CaseStatus.IsTerminal() {
			continue
		}
		key := strings.TrimSpace(s.NationalID)
		if key == "" {
			key = "suspect:" + s.ID.String()
		}
		entry, ok := groups[key]
		if !ok {
			entry = &WantedEntry{
				NationalID: strings.TrimSpace(s.NationalID),
				FullName:   s.FullName,
				PhotoURL:   s.PhotoURL,
			}
			groups[key] = entry
			order = append(order, key)
		}
		entry.SuspectIDs = append(entry.SuspectIDs, s.ID)
		if !types.ContainsID(entry.CaseIDs, s.CaseID) {
			entry.CaseIDs = append(entry.CaseIDs, s.CaseID)
		}
		if days := s.DaysWanted(now); days > entry.MaxDaysWanted {
			entry.MaxDaysWanted = days
		}
		if r.CaseSeverity > entry.MaxSeverity {
			entry.MaxSeverity = r.CaseSeverity
		}
		if entry.PhotoURL == "" {
			entry.PhotoURL = s.PhotoURL
		}
	}

	out := make([]WantedEntry, 0, len(order))
	for _, key := range order {
		e := groups[key]
		e.RankScore = e.MaxDaysWanted * int(e.MaxSeverity)
		e.Reward = int64(e.RankScore) * RewardPerRankPoint
		e.HighAlert = e.MaxDaysWanted > HighAlertThresholdDays
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RankScore > out[j].RankScore
	})
	return out
}

// MarkHighAlert moves the listed suspects of this case from wanted to high
// alert and returns the ones it changed. Suspects that are no longer
// wanted, and every suspect of a terminal case, are left alone.
func (c *Case) MarkHighAlert(suspectIDs []types.ID, now time.Time) []types.ID {
	if c.Status.IsTerminal() {
		return nil
	}
	var marked []types.ID
	for i := range c.Suspects {
		s := &c.Suspects[i]
		if s.Status != SuspectWanted || !types.ContainsID(suspectIDs, s.ID) {
			continue
		}
		s.Status = SuspectHighAlert
		s.UpdatedAt = now
		marked = append(marked, s.ID)
	}
	if len(marked) == 0 {
		return nil
	}
	c.UpdatedAt = now
	c.addEvent(CaseEventSuspectHighAlert, "", fmt.Sprintf("%d suspect(s) wanted for more than %d days", len(marked), HighAlertThresholdDays), map[string]any{
		"suspect_ids": marked,
	})
	return marked
}
