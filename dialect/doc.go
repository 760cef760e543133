// Package dialect defines the storage interfaces the query layer runs on.
//
// Dialect names (Postgres, MySQL, SQLite) select placeholder style and
// identifier quoting in the composer, and the database/sql driver to open.
//
// Statements are run through Prepare. A Stmt is executed and
// then drained row by row:
//
//	stmt, err := drv.Prepare(ctx, "SELECT id AS \"id\" FROM note WHERE status = $1")
//	if err != nil {
//	    return err
//	}
//	defer stmt.Close()
//	if err := stmt.Execute(ctx, "open"); err != nil {
//	    return err
//	}
//	for {
//	    row, ok, err := stmt.FetchRow()
//	    if err != nil || !ok {
//	        return err
//	    }
//	    fmt.Println(row["id"])
//	}
//
// The dialect/sql sub-package implements these interfaces on top of
// database/sql.
package dialect
