package worker

import "os"

// removeFile deletes path, treating "already gone" as success since cleanup
// may race with another goroutine that owned the same job after recovery.
func removeFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
