// Package config holds the section-based configuration store used by every
// aha-recorder component.
//
// Each component registers its defaults under a unique section name
// ("Base", "Csv", "MQTT", ...) before any configuration file is merged.
// Files are merged on top of the defaults key by key, environment overrides
// (AHAREC_<SECTION>_<KEY>) are applied last, and typed values are read back
// per section.
//
// Ordering rules:
//   - AddDefaults must be called for every section before Load or Refresh.
//     The store refuses late registrations with ErrSealed.
//   - Get may be called at any time; it returns the values as of the last
//     AddDefaults, Load or Refresh.
//
// Supported file formats:
//   - TOML (default, any extension other than the ones below)
//   - YAML (.yaml, .yml)
//   - JSON (.json)
//
// Usage:
//
//	store := config.New()
//	if err := config.AddDefaults(store, config.SectionBase, config.DefaultBaseConfig()); err != nil {
//	    return err
//	}
//	if err := store.Load("aharecorder.toml"); err != nil {
//	    return err
//	}
//	base, err := config.Get[config.BaseConfig](store, config.SectionBase)
//
// Security Considerations:
//   - Gateway and broker passwords are best supplied through environment
//     variables (AHAREC_BASE_PASSWORD, AHAREC_MQTT_PASSWORD).
//   - The config file should have restricted permissions (0600).
package config
