package catalog

import (
	"fmt"

	masterminds "github.com/Masterminds/semver/v3"
)

// EngineVersion is the version manifests are checked against.
const EngineVersion = "1.0.0"

// CheckCompatibility validates the manifest version and its engine constraint.
func CheckCompatibility(m *Manifest) error {
	if m.Version != "" {
		if _, err := masterminds.NewVersion(m.Version); err != nil {
			return fmt.Errorf("%s - manifest %s has invalid version %q: %w", logPrefix, m.Name, m.Version, err)
		}
	}
	if m.Requires == "" {
		return nil
	}

	constraint, err := masterminds.NewConstraint(m.Requires)
	if err != nil {
		return fmt.Errorf("%s - manifest %s has invalid requires %q: %w", logPrefix, m.Name, m.Requires, err)
	}
	if !constraint.Check(masterminds.MustParse(EngineVersion)) {
		return fmt.Errorf("%s - manifest %s requires engine %s, running %s", logPrefix, m.Name, m.Requires, EngineVersion)
	}
	return nil
}
