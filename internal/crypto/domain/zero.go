package domain

// Zero overwrites every given key buffer with zeros. Nil buffers are skipped.
func Zero(keys ...[]byte) {
	for _, key := range keys {
		clear(key)
	}
}
