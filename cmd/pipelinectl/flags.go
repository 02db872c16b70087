package main

import "fmt"

// rootFlags holds the persistent flags every subcommand sees.
type rootFlags struct {
	logLevel  string
	logFormat string
}

func validateRootFlags(f rootFlags) error {
	switch f.logFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid --log-format %q: want json or console", f.logFormat)
	}
	return nil
}

// requireDocPath validates the single positional argument every document-
// consuming subcommand (validate/plan/run) takes.
func requireDocPath(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one pipeline document path, got %d", len(args))
	}
	return args[0], nil
}
