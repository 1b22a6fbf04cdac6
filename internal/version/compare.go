package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
)

// CheckVersionCompatibility checks whether a run configuration written for
// requiredVersion can be replayed by an engine at engineVersion.
//
// Compatibility Rules:
//   - An empty requirement or a "main" engine (development build) always passes
//   - A plain version (e.g. "1.2.0") must match the engine's major and minor version;
//     patch versions can differ
//   - Anything else is parsed as a semver constraint (e.g. ">= 1.0, < 2.0")
//
// Examples:
//   - Engine 1.2.1, Required 1.2.0 -> OK (patch differs)
//   - Engine 1.3.0, Required 1.2.0 -> ERROR (minor differs)
//   - Engine 1.3.0, Required ">= 1.2" -> OK (constraint)
//   - Engine main, Required 1.2.0 -> OK (dev build, skip check)
func CheckVersionCompatibility(engineVersion, requiredVersion string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	requiredVersion = strings.TrimSpace(requiredVersion)

	if requiredVersion == "" || engineVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version '%s'", engineVersion)
	}

	if requiredSemver, err := semver.NewVersion(strings.TrimPrefix(requiredVersion, "v")); err == nil {
		if engineSemver.Major() != requiredSemver.Major() {
			return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: engine is %d.x.x but config requires %d.x.x",
				engineSemver.Major(), requiredSemver.Major())
		}

		if engineSemver.Minor() != requiredSemver.Minor() {
			return errors.Newf(errors.ErrCodeVersionMismatch, "minor version mismatch: engine is %d.%d.x but config requires %d.%d.x",
				engineSemver.Major(), engineSemver.Minor(),
				requiredSemver.Major(), requiredSemver.Minor())
		}

		return nil
	}

	constraint, err := semver.NewConstraint(requiredVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version requirement '%s'", requiredVersion)
	}

	if ok, reasons := constraint.Validate(engineSemver); !ok {
		msgs := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			msgs = append(msgs, reason.Error())
		}

		return errors.Newf(errors.ErrCodeVersionMismatch, "engine version %s does not satisfy '%s': %s",
			engineSemver.String(), requiredVersion, strings.Join(msgs, "; "))
	}

	return nil
}
