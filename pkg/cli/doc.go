// Package cli holds the terminal helpers shared by crybaby commands.
//
// It covers the per-user directory layout, YAML/JSON file loading, result
// output in YAML or JSON, human-readable formatting and lipgloss styles.
//
// Example usage:
//
//	paths, err := cli.NewPaths("crybaby")
//	var cfg Config
//	err = cli.LoadFile(paths.ConfigFile(), &cfg)
//
//	cli.Output(records, cli.OutputOptions{Format: cli.FormatJSON})
package cli
