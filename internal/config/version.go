package config

// Version is the qms-server binary version.
// Set at build time via: -ldflags "-X github.com/qmsworks/qms/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
