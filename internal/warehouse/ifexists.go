package warehouse

import "fmt"

// IfExists selects the loader's behavior when the destination table
// already exists.
type IfExists string

const (
	// IfExistsFail errors out when the table exists.
	IfExistsFail IfExists = "fail"
	// IfExistsReplace drops and recreates the table, overwriting it
	// wholesale. The partition-scoped delete step does not apply.
	IfExistsReplace IfExists = "replace"
	// IfExistsAppend deletes rows matching the incoming partition values,
	// then appends. This is the default.
	IfExistsAppend IfExists = "append"
)

// ParseIfExists validates a policy string; empty means append.
func ParseIfExists(s string) (IfExists, error) {
	switch IfExists(s) {
	case "":
		return IfExistsAppend, nil
	case IfExistsFail, IfExistsReplace, IfExistsAppend:
		return IfExists(s), nil
	default:
		return "", fmt.Errorf("invalid if_exists policy %q (want fail, replace, or append)", s)
	}
}
