package localmap

import (
	"crypto/md5"
	"encoding/hex"
	"os"
)

// FileDigest returns the hex MD5 digest of the file at path, or "" if it
// cannot be read. Grounded on jam_ready::utils::file_digest::md5_digest;
// md5 is used here purely as a change-detection checksum, not for any
// security property, matching the original's choice.
func FileDigest(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}
