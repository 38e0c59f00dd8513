// Package config handles loading and validating geogate configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading a .env file from the working directory
//   - Overriding with GEOGATE_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - The integrity reference hash, S3 keys and broker passwords should be
//     supplied via environment variables rather than the YAML file
//   - The legacy HASH variable is honoured when GEOGATE_INTEGRITY_REFERENCE_HASH
//     is unset
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
