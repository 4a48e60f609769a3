// Package migration applies the versioned SQLite schema of the timetable.
//
// Migration files are embedded from sql/ and follow the naming convention
// {version}_{description}.sql (e.g. "001_timetable_entries.sql"). Applied versions
// and their checksums are tracked in the schema_migrations table; editing an applied
// file is reported as ErrChecksumMismatch instead of being silently skipped.
//
// Example usage:
//
//	db, err := migration.Open(ctx, migration.DefaultSQLiteConfig("timetable.db"))
//	if err != nil {
//		return err
//	}
//	applied, err := migration.NewManager(db, migration.Files, logger).Run(ctx)
package migration
