// Package database provides SQLite-based storage of SiteScan run history.
//
// Every site run is stored with its summary counts, the sitemap fingerprint
// and the complete report as JSON. Each failure line is also stored in its
// own row, so two runs can be compared to see which broken pages and links
// are new and which were fixed.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
