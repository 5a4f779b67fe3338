// Package config handles loading and validating daemon configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Secrets (JWT secret, broker password, InfluxDB token) should be set via
//     environment variables
//   - The API listens on loopback by default; the desktop shell is its only
//     intended client
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Node.Binary)
package config
