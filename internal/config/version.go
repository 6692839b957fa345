package config

// Version is the isomatch binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/isomatch/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
