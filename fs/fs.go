package appfs

import "embed"

// FS holds the static assets shipped with the binary.
//go:embed migrations
var FS embed.FS
