package core

// IsLegacyChecksum recognizes the pre-sha256 checksum format: a bare
// 32-character hex digest with no algorithm prefix. Restores of such
// backups skip verification instead of failing on a format they cannot
// check.
func IsLegacyChecksum(checksum string) bool {
	if len(checksum) != 32 {
		return false
	}
	for _, c := range checksum {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
