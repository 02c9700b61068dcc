package main

import (
	"github.com/jward/apisnap"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIBuild is a JSON-friendly build result.
type CLIBuild struct {
	Previous      string   `json:"previous,omitempty"`
	Version       string   `json:"version"`
	Compatibility string   `json:"compatibility"`
	Overridden    bool     `json:"overridden"`
	Report        string   `json:"report,omitempty"`
	CompatSources []string `json:"compat_sources"`
}

func newCLIBuild(res *apisnap.BuildResult) CLIBuild {
	out := CLIBuild{
		Version:       res.Version.String(),
		Compatibility: res.Compatibility.String(),
		Overridden:    res.Overridden,
		Report:        res.Report,
		CompatSources: res.CompatSources,
	}
	if res.Previous != nil {
		out.Previous = res.Previous.String()
	}
	return out
}

// CLIComparison is a JSON-friendly snapshot comparison.
type CLIComparison struct {
	Previous      string `json:"previous"`
	Next          string `json:"next"`
	Compatibility string `json:"compatibility"`
	Report        string `json:"report,omitempty"`
}

func newCLIComparison(c *apisnap.Comparison) CLIComparison {
	return CLIComparison{
		Previous:      c.Previous.String(),
		Next:          c.Next.String(),
		Compatibility: c.Digest.Compatibility.String(),
		Report:        c.Report,
	}
}

// CLIType is a JSON-friendly type declaration.
type CLIType struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Unit      string   `json:"unit"`
	Pass      int      `json:"pass"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// CLIUnit is a JSON-friendly source unit.
type CLIUnit struct {
	Path        string `json:"path"`
	Pass        int    `json:"pass"`
	ContentHash string `json:"content_hash"`
	NewestLevel bool   `json:"newest_level,omitempty"`
}

// CLISummary is a JSON-friendly store summary.
type CLISummary struct {
	Passes      []int          `json:"passes"`
	Counts      map[string]int `json:"counts"`
	LastVersion string         `json:"last_version,omitempty"`
}
