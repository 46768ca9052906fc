// Package constants defines application-wide constants and version information.
package constants

import "runtime"

// Version holds the application version information
const Version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

// Methodology identifies the appraisal guideline the engine implements.
const Methodology = "svk-road-cba-OPIIv3.0"
