// Package scripts bundles the conversion scripts shipped with apisnap.
package scripts

import "embed"

// FS holds the bundled scripts, addressed as "convert/<name>.risor".
//
//go:embed convert/*.risor
var FS embed.FS
