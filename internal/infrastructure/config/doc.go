// Package config handles loading and validating pjinventory configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with PJINVENTORY_* environment variables
//   - Validation of required fields, including those of enabled integrations
//   - Default value handling
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/pjinventory.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Database.Path)
package config
