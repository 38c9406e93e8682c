package types

// Version is the application version. Overwritten by -ldflags at build time.
var Version = "dev"

// ServiceName is reported by the health endpoint and used in mail headers
const ServiceName = "relnotify"
