// Package config loads typed configuration structs from environment
// variables, reading a .env file first when one is present.
//
// Each filevault package that needs configuration declares its own Config
// struct with `env` tags (see pkg/store/postgres, pkg/blob, pkg/notify);
// this package only provides the shared loading mechanics.
//
// Example:
//
//	var cfg postgres.Config
//	if err := config.Load(&cfg); err != nil {
//		// handle missing/invalid environment
//	}
package config
