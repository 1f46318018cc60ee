package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veridose/boxscan/internal/decision"
)

// Session accumulates statistics across scans. Callers own its lifetime
// and pass it into Process explicitly; the pipeline holds no ambient
// session state.
type Session struct {
	ID        string
	StartedAt time.Time

	mu            sync.Mutex
	scans         int
	regions       int
	autoSelected  int
	rescans       int
	corrections   int
	confidenceSum float64
}

// NewSession creates a session with a fresh identifier.
func NewSession() *Session {
	return &Session{ID: uuid.New().String(), StartedAt: time.Now().UTC()}
}

// SessionStats is a point-in-time snapshot of session counters.
type SessionStats struct {
	SessionID    string    `json:"session_id"`
	StartedAt    time.Time `json:"started_at"`
	Scans        int       `json:"scans"`
	Regions      int       `json:"regions"`
	AutoSelected int       `json:"auto_selected"`
	Rescans      int       `json:"rescans"`
	Corrections  int       `json:"corrections"`

	// AverageConfidence is the mean aggregate confidence over all scans.
	AverageConfidence float64 `json:"average_confidence"`
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := SessionStats{
		SessionID:    s.ID,
		StartedAt:    s.StartedAt,
		Scans:        s.scans,
		Regions:      s.regions,
		AutoSelected: s.autoSelected,
		Rescans:      s.rescans,
		Corrections:  s.corrections,
	}
	if s.scans > 0 {
		stats.AverageConfidence = s.confidenceSum / float64(s.scans)
	}
	return stats
}

// recordScan folds one result into the counters.
func (s *Session) recordScan(res *MultiDrugResult) {
	if s == nil || res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	s.regions += len(res.Regions)
	s.confidenceSum += res.AggregateConfidence
	for _, r := range res.Regions {
		switch r.Action {
		case decision.ActionAutoSelect:
			s.autoSelected++
		case decision.ActionRescan:
			s.rescans++
		}
	}
}

// recordCorrection counts an applied correction.
func (s *Session) recordCorrection() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.corrections++
	s.mu.Unlock()
}
