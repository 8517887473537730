package store

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// dialect holds the per-driver SQL. The two drivers disagree on placeholder
// syntax, so every statement is spelled out rather than rewritten at runtime.
type dialect struct {
	driver string

	insertMessage string
	historyPlain  string
	historyJoined string
	selectUser    string
	healthProbe   string

	// schema is the bootstrap DDL. Empty for drivers whose schema is
	// managed outside this service.
	schema []string
}

func dialectFor(driver string) (*dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect(), nil
	case DriverPostgres:
		return postgresDialect(), nil
	default:
		return nil, ErrUnknownDriver
	}
}

func sqliteDialect() *dialect {
	return &dialect{
		driver: DriverSQLite,
		insertMessage: `
			INSERT INTO messages (id, course_id, video_id, sender_id, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
		historyPlain: `
			SELECT id, course_id, video_id, sender_id, content, created_at
			FROM messages
			WHERE course_id = ? AND video_id = ?
			ORDER BY created_at ASC
		`,
		historyJoined: `
			SELECT m.id, m.course_id, m.video_id, m.sender_id, COALESCE(u.full_name, ''), m.content, m.created_at
			FROM messages m
			LEFT JOIN users u ON u.id = m.sender_id
			WHERE m.course_id = ? AND m.video_id = ?
			ORDER BY m.created_at ASC
		`,
		selectUser:  `SELECT full_name FROM users WHERE id = ?`,
		healthProbe: `SELECT COUNT(*) FROM messages LIMIT 1`,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY,
				course_id TEXT NOT NULL,
				video_id TEXT NOT NULL DEFAULT '',
				sender_id TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_room_time
				ON messages (course_id, video_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				full_name TEXT NOT NULL
			)`,
		},
	}
}

// postgresDialect covers deployments pointing at the platform's shared
// database. Schema there is owned by the platform's migrations, so no
// bootstrap DDL ships here; the health probe surfaces a missing schema.
func postgresDialect() *dialect {
	return &dialect{
		driver: DriverPostgres,
		insertMessage: `
			INSERT INTO messages (id, course_id, video_id, sender_id, content, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
		historyPlain: `
			SELECT id, course_id, video_id, sender_id, content, created_at
			FROM messages
			WHERE course_id = $1 AND video_id = $2
			ORDER BY created_at ASC
		`,
		historyJoined: `
			SELECT m.id, m.course_id, m.video_id, m.sender_id, COALESCE(u.full_name, ''), m.content, m.created_at
			FROM messages m
			LEFT JOIN users u ON u.id = m.sender_id
			WHERE m.course_id = $1 AND m.video_id = $2
			ORDER BY m.created_at ASC
		`,
		selectUser:  `SELECT full_name FROM users WHERE id = $1`,
		healthProbe: `SELECT COUNT(*) FROM messages LIMIT 1`,
	}
}
