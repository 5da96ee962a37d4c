package fileutil

// SetRename replaces the rename hook for the duration of a test.
func SetRename(fn func(string, string) error) (restore func()) {
	prev := rename
	rename = fn
	return func() { rename = prev }
}
