package appfs

import "embed"

// FS embeds the SQL migrations so a deployed binary can migrate itself.
//go:embed migrations
var FS embed.FS
