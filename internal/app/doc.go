// Package app contains the application wiring. It defines the main App
// struct, its configuration, and the execution lifecycle, decoupled from
// any specific entrypoint like a CLI or server.
//
// NewApp loads the configuration through a config.Loader, builds the schema,
// opens the configured datasource and puts an executor on top of it. Run
// executes one request document against it and writes the JSON result.
package app
