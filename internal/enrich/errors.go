package enrich

import "fmt"

// MissingDependencyError reports an artifact requested before the artifact it needs exists.
type MissingDependencyError struct {
	Artifact string
	Requires string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s requires %s to be present first", e.Artifact, e.Requires)
}
