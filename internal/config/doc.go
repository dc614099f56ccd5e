// Package config holds all runtime configuration for partsync.
//
// Configuration comes from three layers, lowest priority first: compiled-in
// defaults (NewConfig), the optional .partsync YAML file (vendor URL
// overrides and coordinator settings), and CLI flags. The resulting Config
// struct is passed through the application via dependency injection rather
// than global state.
package config
