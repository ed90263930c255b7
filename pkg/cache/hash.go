package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/chainopt/chainopt/pkg/lp"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ModelHash fingerprints a model by its MPS rendering and its objective
// constant, which MPS has no place for. Rows and columns are positional,
// so models with equal hashes share their feasible set and objective
// column by column even when their names differ.
func ModelHash(m *lp.Model) (string, error) {
	var buf bytes.Buffer
	if err := lp.WriteMPS(&buf, m); err != nil {
		return "", err
	}
	fmt.Fprintf(&buf, "* OBJCONST %s\n", strconv.FormatFloat(m.Objective().Constant, 'g', -1, 64))
	return Hash(buf.Bytes()), nil
}
