package smoothtile

import _ "embed"

//go:embed VERSION
var Version string

//go:embed smoothtile.toml
var DefaultConfig string
