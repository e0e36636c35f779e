// Package all registers every storage backend with the storage registry.
package all

import (
	_ "schemagen/internal/storage/gormsqlite"
	_ "schemagen/internal/storage/sqlite"
)
