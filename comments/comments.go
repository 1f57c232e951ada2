// Package comments reads the externally maintained comment store of a report.
package comments

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/ethereum/go-ethereum/log"
)

// Filename is the name of the comment store inside the report output directory
const Filename = "comments.json"

// Load reads the mapping from test identity to comment stored at path.
// It never fails: a missing file, an unreadable file or content that is not
// a JSON object all yield an empty mapping. Entries whose value is not a
// string are dropped.
func Load(logger log.Logger, path string) map[string]string {
	out := make(map[string]string)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("No comment store found", "path", path)
		} else {
			logger.Warn("Failed to read comment store, ignoring", "path", path, "err", err)
		}
		return out
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("Comment store is not a JSON object, ignoring", "path", path, "err", err)
		return out
	}

	for id, value := range raw {
		var comment string
		if err := json.Unmarshal(value, &comment); err != nil {
			logger.Warn("Dropping non-string comment", "path", path, "id", id)
			continue
		}
		out[id] = comment
	}

	logger.Debug("Loaded comment store", "path", path, "comments", len(out))
	return out
}
