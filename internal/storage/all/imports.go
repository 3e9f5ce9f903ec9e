// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package. After importing it, the following
// kinds are available to storage.New:
//
//   - "postgres" (sheetsync/internal/storage/postgres)
//   - "mssql"    (sheetsync/internal/storage/mssql)
//   - "mysql"    (sheetsync/internal/storage/mysql)
//   - "sqlite"   (sheetsync/internal/storage/sqlite)
//
// Typical usage (in cmd/sheetsync):
//
//	import (
//	    _ "sheetsync/internal/storage/all" // enable all built-in backends
//
//	    "sheetsync/internal/storage"
//	)
//
//	st, err := storage.New(ctx, storage.ConfigFromSettings(settings))
//	if err != nil {
//	    // handle error
//	}
//	defer st.Close()
//
// A binary that needs only a subset of backends can import those packages
// directly instead of this one.
package all

import (
	_ "sheetsync/internal/storage/mssql"
	_ "sheetsync/internal/storage/mysql"
	_ "sheetsync/internal/storage/postgres"
	_ "sheetsync/internal/storage/sqlite"
)
