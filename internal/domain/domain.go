package domain

// KeyPrefix namespaces every key the service writes to the store.
// Set once at startup from config before any repository is constructed.
var KeyPrefix = "passage:"

// SetKeyPrefix overrides the storage key prefix. Call from main only.
func SetKeyPrefix(prefix string) {
	if prefix != "" {
		KeyPrefix = prefix
	}
}
