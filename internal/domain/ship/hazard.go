package ship

// HazardKind categorizes an active hazard.
type HazardKind string

const (
	HazardHostileShip HazardKind = "hostile_ship"
	HazardAnomaly     HazardKind = "anomaly"
	HazardDisease     HazardKind = "disease"
	HazardSabotage    HazardKind = "sabotage"
	HazardInternal    HazardKind = "internal"
)

// Hazard is an active threat to the ship.
type Hazard struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Kind             HazardKind `json:"kind"`
	Severity         int        `json:"severity"` // 1-10
	Description      string     `json:"description,omitempty"`
	OriginatingAgent string     `json:"originating_agent,omitempty"`
}

// AddHazard appends the hazard and escalates the alert level by the
// transition rule: severity >= 8 forces red, severity >= 5 raises a green
// alert to yellow. The alert never de-escalates on add.
func (s *State) AddHazard(h Hazard) {
	s.Hazards = append(s.Hazards, h)
	if h.Severity >= 8 {
		s.AlertLevel = AlertRed
	} else if h.Severity >= 5 && s.AlertLevel == AlertGreen {
		s.AlertLevel = AlertYellow
	}
}

// RemoveHazard deletes the hazard by id. Removing the last hazard returns
// the alert to green; while hazards remain the alert holds, so it never
// contradicts the list.
func (s *State) RemoveHazard(hazardID string) bool {
	kept := s.Hazards[:0]
	removed := false
	for _, h := range s.Hazards {
		if h.ID == hazardID {
			removed = true
			continue
		}
		kept = append(kept, h)
	}
	s.Hazards = kept
	if removed && len(s.Hazards) == 0 {
		s.AlertLevel = AlertGreen
	}
	return removed
}
