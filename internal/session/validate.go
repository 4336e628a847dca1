package session

import (
	"fmt"
	"regexp"
)

// Session names become directory names under the data dir, so only a
// conservative character set is allowed.
var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName rejects names that cannot safely be used as a session
// directory.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("bad session name %q: use lowercase letters, digits, - or _ (max 64 chars)", name)
	}
	return nil
}
