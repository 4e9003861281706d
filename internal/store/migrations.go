package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS calendar_connections (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	provider    TEXT NOT NULL CHECK(provider IN ('google', 'outlook', 'apple')),
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_connections_user_id ON calendar_connections(user_id);

CREATE TABLE IF NOT EXISTS calendar_events (
	id            TEXT PRIMARY KEY,
	connection_id TEXT NOT NULL REFERENCES calendar_connections(id) ON DELETE CASCADE,
	calendar_id   TEXT NOT NULL DEFAULT '',
	external_id   TEXT NOT NULL,
	start_at      DATETIME NOT NULL,
	end_at        DATETIME NOT NULL,
	time_zone     TEXT NOT NULL DEFAULT '',
	summary       TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	busy          INTEGER NOT NULL DEFAULT 1 CHECK(busy IN (0, 1)),
	synthetic     INTEGER NOT NULL DEFAULT 0 CHECK(synthetic IN (0, 1)),
	deleted       INTEGER NOT NULL DEFAULT 0 CHECK(deleted IN (0, 1)),
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(connection_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_calendar_events_active
	ON calendar_events(connection_id, busy, synthetic, deleted);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS tasks (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	connection_id     TEXT,
	plan_id           TEXT,
	name              TEXT NOT NULL,
	details           TEXT NOT NULL DEFAULT '',
	duration_minutes  INTEGER NOT NULL DEFAULT 0,
	is_calendar_event INTEGER NOT NULL DEFAULT 0 CHECK(is_calendar_event IN (0, 1)),
	calendar_event_id TEXT,
	detached          INTEGER NOT NULL DEFAULT 0 CHECK(detached IN (0, 1)),
	sort_order        INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_calendar_event
	ON tasks(connection_id, calendar_event_id) WHERE is_calendar_event = 1;

CREATE TABLE IF NOT EXISTS task_schedules (
	id               TEXT PRIMARY KEY,
	task_id          TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	date             TEXT NOT NULL,
	start_time       TEXT NOT NULL,
	end_time         TEXT,
	duration_minutes INTEGER NOT NULL,
	status           TEXT NOT NULL DEFAULT 'scheduled' CHECK(status IN ('scheduled', 'done')),
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_task_schedules_task_id ON task_schedules(task_id);
CREATE INDEX IF NOT EXISTS idx_task_schedules_date ON task_schedules(date);

CREATE TABLE IF NOT EXISTS calendar_event_links (
	id            TEXT PRIMARY KEY,
	connection_id TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	schedule_id   TEXT NOT NULL REFERENCES task_schedules(id) ON DELETE CASCADE,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(connection_id, external_id, schedule_id)
);

CREATE INDEX IF NOT EXISTS idx_links_event ON calendar_event_links(connection_id, external_id);
CREATE INDEX IF NOT EXISTS idx_links_task_id ON calendar_event_links(task_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
