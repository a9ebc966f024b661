package store

// CreateRecordsTableSQL creates the single table holding every namespace.
// Keys are 8-byte big-endian blobs so the primary key index orders them
// numerically within a namespace.
const CreateRecordsTableSQL = `
CREATE TABLE IF NOT EXISTS records (
    ns TEXT NOT NULL,
    key BLOB NOT NULL,
    value BLOB NOT NULL,
    PRIMARY KEY (ns, key)
) WITHOUT ROWID`

const (
	selectRecordSQL = `SELECT value FROM records WHERE ns = ? AND key = ?`
	upsertRecordSQL = `INSERT INTO records (ns, key, value) VALUES (?, ?, ?)
		ON CONFLICT (ns, key) DO UPDATE SET value = excluded.value`
	deleteRecordSQL = `DELETE FROM records WHERE ns = ? AND key = ?`
	scanRecordsSQL  = `SELECT key, value FROM records WHERE ns = ? ORDER BY key`
)

// AllSchemaSQL returns all SQL statements needed to initialize a store.
func AllSchemaSQL() []string {
	return []string{CreateRecordsTableSQL}
}
