package ship

import (
	"fmt"
	"math"
)

// fieldSetter applies one raw value to the state and reports whether the
// field actually changed.
type fieldSetter func(s *State, raw any) (Change, bool, error)

// fieldSetters is the closed field-name-to-type mapping accepted by
// ApplyFieldChanges. Alert level and the hazard list are deliberately
// absent: they change only through AddHazard/RemoveHazard.
var fieldSetters = map[string]fieldSetter{
	"hull_integrity":      boundedIntField(func(s *State) *int { return &s.HullIntegrity }),
	"shield_power":        boundedIntField(func(s *State) *int { return &s.ShieldPower }),
	"warp_core_stability": boundedIntField(func(s *State) *int { return &s.WarpCoreStability }),
	"life_support":        boundedIntField(func(s *State) *int { return &s.LifeSupport }),

	"weapons_online":        boolField(func(s *State) *bool { return &s.WeaponsOnline }),
	"sensors_online":        boolField(func(s *State) *bool { return &s.SensorsOnline }),
	"communications_online": boolField(func(s *State) *bool { return &s.CommunicationsOnline }),

	"power_reserves":      nonNegativeIntField(func(s *State) *int { return &s.PowerReserves }),
	"crew_count":          nonNegativeIntField(func(s *State) *int { return &s.CrewCount }),
	"medical_supplies":    nonNegativeIntField(func(s *State) *int { return &s.MedicalSupplies }),
	"food_reserves":       nonNegativeIntField(func(s *State) *int { return &s.FoodReserves }),
	"antimatter_reserves": nonNegativeIntField(func(s *State) *int { return &s.AntimatterReserves }),

	"current_sector":   stringField(func(s *State) *string { return &s.CurrentSector }),
	"destination":      stringField(func(s *State) *string { return &s.Destination }),
	"current_mission":  stringField(func(s *State) *string { return &s.CurrentMission }),
	"mission_priority": stringField(func(s *State) *string { return &s.MissionPriority }),

	"warp_speed": floatField(func(s *State) *float64 { return &s.WarpSpeed }),

	"oversight_active": boolField(func(s *State) *bool { return &s.OversightActive }),
	"monitoring_level": monitoringField(),
}

// KnownFields lists the field names ApplyFieldChanges accepts.
func KnownFields() []string {
	out := make([]string, 0, len(fieldSetters))
	for name := range fieldSetters {
		out = append(out, name)
	}
	return out
}

func boundedIntField(get func(*State) *int) fieldSetter {
	return func(s *State, raw any) (Change, bool, error) {
		v, err := asInt(raw)
		if err != nil {
			return Change{}, false, err
		}
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		ptr := get(s)
		if *ptr == v {
			return Change{}, false, nil
		}
		change := Change{Old: *ptr, New: v}
		*ptr = v
		return change, true, nil
	}
}

func nonNegativeIntField(get func(*State) *int) fieldSetter {
	return func(s *State, raw any) (Change, bool, error) {
		v, err := asInt(raw)
		if err != nil {
			return Change{}, false, err
		}
		if v < 0 {
			v = 0
		}
		ptr := get(s)
		if *ptr == v {
			return Change{}, false, nil
		}
		change := Change{Old: *ptr, New: v}
		*ptr = v
		return change, true, nil
	}
}

func boolField(get func(*State) *bool) fieldSetter {
	return func(s *State, raw any) (Change, bool, error) {
		v, ok := raw.(bool)
		if !ok {
			return Change{}, false, fmt.Errorf("expected bool, got %T", raw)
		}
		ptr := get(s)
		if *ptr == v {
			return Change{}, false, nil
		}
		change := Change{Old: *ptr, New: v}
		*ptr = v
		return change, true, nil
	}
}

func stringField(get func(*State) *string) fieldSetter {
	return func(s *State, raw any) (Change, bool, error) {
		v, ok := raw.(string)
		if !ok {
			return Change{}, false, fmt.Errorf("expected string, got %T", raw)
		}
		ptr := get(s)
		if *ptr == v {
			return Change{}, false, nil
		}
		change := Change{Old: *ptr, New: v}
		*ptr = v
		return change, true, nil
	}
}

func floatField(get func(*State) *float64) fieldSetter {
	return func(s *State, raw any) (Change, bool, error) {
		v, err := asFloat(raw)
		if err != nil {
			return Change{}, false, err
		}
		ptr := get(s)
		if *ptr == v {
			return Change{}, false, nil
		}
		change := Change{Old: *ptr, New: v}
		*ptr = v
		return change, true, nil
	}
}

func monitoringField() fieldSetter {
	return func(s *State, raw any) (Change, bool, error) {
		str, ok := raw.(string)
		if !ok {
			return Change{}, false, fmt.Errorf("expected string, got %T", raw)
		}
		v := MonitoringLevel(str)
		switch v {
		case MonitoringFull, MonitoringPartial, MonitoringNone:
		default:
			return Change{}, false, fmt.Errorf("invalid monitoring level %q", str)
		}
		if s.MonitoringLevel == v {
			return Change{}, false, nil
		}
		change := Change{Old: s.MonitoringLevel, New: v}
		s.MonitoringLevel = v
		return change, true, nil
	}
}

// asInt accepts native ints and the float64 values JSON decoding produces.
func asInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func asFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}
