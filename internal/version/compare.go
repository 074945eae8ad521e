package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// CheckVersionCompatibility reports whether a strategy config written for configVersion
// can run on engineVersion. Major and minor must match; the patch may differ. A "main"
// development build on either side skips the check.
func CheckVersionCompatibility(engineVersion, configVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if engineVersion == "main" || configVersion == "main" {
		return nil
	}

	engine, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version '%s'", engineVersion)
	}

	config, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid config version '%s'", configVersion)
	}

	if engine.Major() != config.Major() {
		return errors.Newf(errors.ErrCodeInvalidVersion, "major version mismatch: engine is %d.x.x but config requires %d.x.x",
			engine.Major(), config.Major())
	}

	if engine.Minor() != config.Minor() {
		return errors.Newf(errors.ErrCodeInvalidVersion, "minor version mismatch: engine is %d.%d.x but config requires %d.%d.x",
			engine.Major(), engine.Minor(), config.Major(), config.Minor())
	}

	return nil
}
