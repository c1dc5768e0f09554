package cli

import "fmt"

const banner = `
 __  __ _                  _   _       _ _      ___  ____   ____ _   _    _
|  \/  (_)_  _____ _ __   | | | |_ __ (_) |_   / _ \|  _ \ / ___| | | |  / \   %s
| |\/| | \ \/ / _ \ '__|  | | | | '_ \| | __| | | | | |_) | |   | | | | / _ \
| |  | | |>  <  __/ |     | |_| | | | | | |_  | |_| |  __/| |___| |_| |/ ___ \
|_|  |_|_/_/\_\___|_|      \___/|_| |_|_|\__|  \___/|_|    \____|\___//_/   \_\
Simulated Mixer Unit Over OPCUA
______________________________________________________________________O/______
                                                                      O\
`

// Foreground colors.
const (
	black uint8 = iota + 30
	red
	green
	yellow
	blue
	magenta
	cyan
	white
)

// colorize colorizes a string by a given color.
func colorize(s string, c uint8) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, s)
}
