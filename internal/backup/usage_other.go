//go:build !unix

package backup

import "errors"

func freeSpace(string) (uint64, error) {
	return 0, errors.New("free space is not available on this platform")
}
