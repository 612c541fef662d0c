package results

type outcomeKey struct {
	scenario string
	feature  string
	status   Status
}

type featureKey struct {
	name   string
	status Status
}

// ResultSet is an ordered, de-duplicated collection of scenario outcomes plus the derived feature outcomes.
// Use `NewResultSet` or `Merge` to construct one.
type ResultSet struct {
	Scenarios []TestOutcome    `json:"scenarios"`
	Features  []FeatureOutcome `json:"features"`
}

// NewResultSet de-duplicates the given outcomes by (scenario, feature, status) and derives the feature outcomes.
// The first occurrence of a duplicate wins.
func NewResultSet(outcomes ...TestOutcome) ResultSet {
	seen := make(map[outcomeKey]struct{}, len(outcomes))
	scenarios := make([]TestOutcome, 0, len(outcomes))

	for _, outcome := range outcomes {
		if _, ok := seen[outcome.key()]; ok {
			continue
		}

		seen[outcome.key()] = struct{}{}
		scenarios = append(scenarios, outcome)
	}

	return ResultSet{Scenarios: scenarios, Features: deriveFeatures(scenarios)}
}

// Merge combines multiple result sets. Merging a set with itself yields an equivalent set.
func Merge(sets ...ResultSet) ResultSet {
	outcomes := make([]TestOutcome, 0)
	for _, set := range sets {
		outcomes = append(outcomes, set.Scenarios...)
	}

	return NewResultSet(outcomes...)
}

// FeatureStatus derives the status of a feature from its scenarios: failed if any scenario failed, passed if there are
// scenarios, unknown otherwise.
func FeatureStatus(scenarios []TestOutcome) Status {
	if len(scenarios) == 0 {
		return StatusUnknown
	}

	for _, scenario := range scenarios {
		if scenario.Status == StatusFailed {
			return StatusFailed
		}
	}

	return StatusPassed
}

func deriveFeatures(scenarios []TestOutcome) []FeatureOutcome {
	order := make([]string, 0)
	byFeature := make(map[string][]TestOutcome)

	for _, scenario := range scenarios {
		if _, ok := byFeature[scenario.Feature]; !ok {
			order = append(order, scenario.Feature)
		}
		byFeature[scenario.Feature] = append(byFeature[scenario.Feature], scenario)
	}

	seen := make(map[featureKey]struct{}, len(order))
	features := make([]FeatureOutcome, 0, len(order))

	for _, name := range order {
		feature := FeatureOutcome{Name: name, Status: FeatureStatus(byFeature[name])}

		key := featureKey{name: feature.Name, status: feature.Status}
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		features = append(features, feature)
	}

	return features
}

// IsEmpty is true if the set does not contain a single scenario
func (rs ResultSet) IsEmpty() bool {
	return len(rs.Scenarios) == 0
}

// WithStatus returns all scenarios with the given status, in order.
func (rs ResultSet) WithStatus(status Status) []TestOutcome {
	matching := make([]TestOutcome, 0)
	for _, scenario := range rs.Scenarios {
		if scenario.Status == status {
			matching = append(matching, scenario)
		}
	}

	return matching
}

// Failed returns all failed scenarios
func (rs ResultSet) Failed() []TestOutcome {
	return rs.WithStatus(StatusFailed)
}

// Passed returns all passed scenarios
func (rs ResultSet) Passed() []TestOutcome {
	return rs.WithStatus(StatusPassed)
}

// Skipped returns all skipped scenarios
func (rs ResultSet) Skipped() []TestOutcome {
	return rs.WithStatus(StatusSkipped)
}

// FeaturesWithStatus returns all features with the given status
func (rs ResultSet) FeaturesWithStatus(status Status) []FeatureOutcome {
	matching := make([]FeatureOutcome, 0)
	for _, feature := range rs.Features {
		if feature.Status == status {
			matching = append(matching, feature)
		}
	}

	return matching
}

// FeatureNames lists every feature once, in order of appearance
func (rs ResultSet) FeatureNames() []string {
	seen := make(map[string]struct{}, len(rs.Features))
	names := make([]string, 0, len(rs.Features))
	for _, feature := range rs.Features {
		if _, ok := seen[feature.Name]; ok {
			continue
		}

		seen[feature.Name] = struct{}{}
		names = append(names, feature.Name)
	}

	return names
}

// TotalDuration sums up the duration of all scenarios
func (rs ResultSet) TotalDuration() float64 {
	total := 0.0
	for _, scenario := range rs.Scenarios {
		total += SafeDuration(scenario.DurationSeconds)
	}

	return total
}
