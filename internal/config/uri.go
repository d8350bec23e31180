package config

import "fmt"

// uriTemplate is the only URI shape the runtime is given.
const uriTemplate = "postgresql://%s:%s@%s:%s/%s"

// ComposeDatabaseURI substitutes each part into the template verbatim.  No
// escaping is applied; unset parts render as MissingPlaceholder.
func ComposeDatabaseURI(p DatabaseParts) string {
	return fmt.Sprintf(uriTemplate, p.User, p.Password, p.Host, p.Port, p.DB)
}

// RedactedDatabaseURI is ComposeDatabaseURI with the password masked.
func RedactedDatabaseURI(p DatabaseParts) string {
	if p.Password.Set {
		p.Password.Value = redactMask
	}
	return ComposeDatabaseURI(p)
}
