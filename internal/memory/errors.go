package memory

import "fmt"

// CorruptArtifactError means an artifact file exists but could not be
// decrypted or parsed. Callers must not treat this as "no artifact".
type CorruptArtifactError struct {
	Name string
	Err  error
}

func (e *CorruptArtifactError) Error() string {
	return fmt.Sprintf("artifact %s is corrupt: %v", e.Name, e.Err)
}

func (e *CorruptArtifactError) Unwrap() error {
	return e.Err
}

// NotFoundError means the requested artifact or session does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s does not exist", e.Path)
}

// StaleKeyError means the store has been told the team key rotated past the
// version it was opened with; writes under the old key are refused.
type StaleKeyError struct {
	HaveVersion int
	WantVersion int
}

func (e *StaleKeyError) Error() string {
	return fmt.Sprintf("team key version %d is stale: key has rotated to version %d; resolve the new key and re-encrypt", e.HaveVersion, e.WantVersion)
}
