// Package sqlsafe validates identifiers and parameter values before they
// reach dynamically built SQL.
package sqlsafe

import (
	"fmt"
	"regexp"
)

// identifierPattern is the only shape a table or column name may take before
// interpolation into a statement. Anything else is rejected outright rather
// than quoted.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxIdentifierLength matches the PostgreSQL limit; SQL Server allows more
// but nothing a declarative API definition should ever need.
const maxIdentifierLength = 63

// ValidateIdentifier returns an error unless name is a plain SQL identifier:
// letters, digits and underscores, not starting with a digit.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("identifier %q exceeds %d characters", name, maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: only letters, digits and underscores are allowed", name)
	}
	return nil
}

// ValidateIdentifiers applies ValidateIdentifier to each name, failing on
// the first offender.
func ValidateIdentifiers(names []string) error {
	for _, name := range names {
		if err := ValidateIdentifier(name); err != nil {
			return err
		}
	}
	return nil
}
