package migrations

import "embed"

//go:embed events/*.sql
var EventsFS embed.FS
