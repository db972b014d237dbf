package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    name       TEXT      NOT NULL,
    source     TEXT      NOT NULL,
    freqs      TEXT      NOT NULL
);

CREATE TABLE IF NOT EXISTS frames (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER NOT NULL REFERENCES sessions (id),
    frame_index INTEGER NOT NULL,
    begin       TEXT    NOT NULL,
    spectrum    TEXT    NOT NULL
);`

	initIndexesSQL = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_frames_session_frame ON frames (session_id, frame_index);`

	insertSessionSQL = `
INSERT INTO sessions (
                      created_at,
                      name,
                      source,
                      freqs)
VALUES (?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    s.id,
    s.created_at,
    s.name,
    s.source,
    s.freqs,
    (SELECT COUNT(*) FROM frames f WHERE f.session_id = s.id)
FROM sessions s
WHERE
    s.id = ?`

	selectSessionsSQL = `
SELECT
    s.id,
    s.created_at,
    s.name,
    s.source,
    s.freqs,
    (SELECT COUNT(*) FROM frames f WHERE f.session_id = s.id)
FROM sessions s
ORDER BY s.id`

	selectNextFrameIndexSQL = `
SELECT COALESCE(MAX(frame_index) + 1, 0) FROM frames WHERE session_id = ?`

	insertFrameSQL = `
INSERT INTO frames (
                    session_id,
                    frame_index,
                    begin,
                    spectrum)
VALUES `

	selectFramesSQL = `
SELECT
    frame_index,
    begin,
    spectrum
FROM frames
WHERE
    session_id = ?
ORDER BY frame_index`
)
