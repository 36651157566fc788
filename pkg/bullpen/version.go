// Package bullpen holds project-wide constants shared by the CLI and its
// subsystems.
package bullpen

// Version is the released version of the bullpen tool.
const Version = "0.3.0"

// ModulePath is the Go module path reported by the version command.
const ModulePath = "github.com/mesh-intelligence/bullpen"
