package httpapi

import (
	"jobingest-engine/internal/admin"
	"jobingest-engine/internal/events"
)

type Deps struct {
	Admin *admin.Service
	Hub   *events.Hub

	// AllowedOrigins limits CORS; empty reflects any Origin.
	AllowedOrigins []string
}
