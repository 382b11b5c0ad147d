// SPDX-License-Identifier: AGPL-3.0-only
package feed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
)

// Path returns where the feed for key is written under dir.
func Path(dir, key string) string {
	return filepath.Join(dir, key+".xml")
}

// Write serializes doc to <dir>/<key>.xml. The file is written to a
// temporary name first and renamed into place, so a failure leaves any
// previous feed untouched.
func Write(dir, key string, doc *Document) (string, error) {
	path := Path(dir, key)

	data, err := Marshal(doc)
	if err != nil {
		return "", &common.SerializationError{Path: path, Err: err}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &common.SerializationError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+key+"-*.xml")
	if err != nil {
		return "", &common.SerializationError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &common.SerializationError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &common.SerializationError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", &common.SerializationError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", &common.SerializationError{Path: path, Err: fmt.Errorf("replacing feed: %w", err)}
	}

	return path, nil
}
