// =============================================================================
// INTERLIS Enum Extractor - Main Entry Point
// =============================================================================
//
// USAGE:
//   ilienums <file>         - Extract the enumerations of one transfer file
//   ilienums process        - Convert all transfer files in the input directory
//   ilienums watch          - Convert transfer files as they arrive
//   ilienums version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Reading, extraction, validation and rendering
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/interlis-enums/cmd"
)

func main() {
	cmd.Execute()
}
