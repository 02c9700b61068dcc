package facade

import (
	"errors"
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// Check compares generated against the file at path and returns a unified
// diff, or "" when they match. A missing file diffs against empty content.
func Check(path, generated string) (string, error) {
	current, err := os.ReadFile(path)
	fromFile := path
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("facade: check %s: %w", path, err)
		}
		fromFile = "/dev/null"
	}
	if string(current) == generated {
		return "", nil
	}
	u := difflib.UnifiedDiff{
		A:        splitLines(string(current)),
		B:        splitLines(generated),
		FromFile: fromFile,
		ToFile:   path + " (generated)",
		Context:  3,
	}
	diff, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("facade: check %s: %w", path, err)
	}
	return diff, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}
