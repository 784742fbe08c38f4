// Package assets embeds the static files shipped with the binaries.
package assets

import "embed"

//go:embed templates templates/email/_*
var FS embed.FS
