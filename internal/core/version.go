package core

// ServiceName is used in feed generator tags and health responses
const ServiceName = "chatarchive"

// Version is set at link time with -ldflags "-X chatarchive/internal/core.Version=..."
var Version = "dev"

// Generator returns the generator string written into published feeds
func Generator() string {
	return ServiceName + " " + Version
}
