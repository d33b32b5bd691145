package migration

import "embed"

// Files holds the versioned schema migrations shipped with the binary
//
//go:embed sql/*.sql
var Files embed.FS

// filesRoot is the directory of Files holding the migrations
const filesRoot = "sql"
