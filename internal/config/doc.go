// Package config loads the application configuration.
//
// # Configuration Sources
//
// Values are resolved in the following order, later sources winning:
//
//	1. Built-in defaults (Default)
//	2. config.yaml (or configs/config.yaml)
//	3. A .env file in the working directory
//	4. Environment variables
//
// # Environment Variables
//
// Variables follow the pattern GRADES_<SECTION>_<FIELD>:
//
//	GRADES_SERVER_PORT=8080
//	GRADES_LOGGING_LEVEL=debug
//	GRADES_ANALYSIS_ROW_POLICY=skip
//	GRADES_SESSIONS_TTL=30m
//
// The resulting configuration is validated with go-playground/validator
// before it is returned.
package config
