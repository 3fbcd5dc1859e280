package db

// Schema is the SQL DDL for every table the orchestration core owns.
// Resume, JobRole, and User are external collaborators and are not
// modeled here. Execute it via [Migrate] or apply it manually during
// deployment, mirroring npcstore.Schema's "own DDL as a package const"
// convention.
const Schema = `
CREATE TABLE IF NOT EXISTS interviews (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    resume_id    TEXT NOT NULL,
    job_role_id  TEXT NOT NULL,
    status       TEXT NOT NULL,
    type         TEXT NOT NULL DEFAULT 'standard',
    overall_score INTEGER,
    version      BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_interviews_user ON interviews(user_id);
CREATE INDEX IF NOT EXISTS idx_interviews_status ON interviews(status);

CREATE TABLE IF NOT EXISTS questions (
    id           TEXT PRIMARY KEY,
    interview_id TEXT NOT NULL REFERENCES interviews(id),
    ordinal      INTEGER NOT NULL,
    text         TEXT NOT NULL,
    category     TEXT NOT NULL,
    difficulty   TEXT NOT NULL,
    avatar_key   TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (interview_id, ordinal)
);

CREATE TABLE IF NOT EXISTS responses (
    id            TEXT PRIMARY KEY,
    question_id   TEXT NOT NULL UNIQUE REFERENCES questions(id),
    interview_id  TEXT NOT NULL REFERENCES interviews(id),
    user_id       TEXT NOT NULL,
    video_key     TEXT NOT NULL,
    transcription TEXT,
    confidence    DOUBLE PRECISION,
    duration_seconds DOUBLE PRECISION,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_responses_interview ON responses(interview_id);

CREATE TABLE IF NOT EXISTS feedback (
    id                TEXT PRIMARY KEY,
    interview_id      TEXT NOT NULL UNIQUE REFERENCES interviews(id),
    user_id           TEXT NOT NULL,
    overall_score     INTEGER NOT NULL,
    strengths         JSONB NOT NULL DEFAULT '[]',
    weaknesses        JSONB NOT NULL DEFAULT '[]',
    recommendations   JSONB NOT NULL DEFAULT '[]',
    detailed_analysis TEXT NOT NULL DEFAULT '',
    generated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tts_audio_cache (
    cache_key  TEXT PRIMARY KEY,
    blob_key   TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS avatar_video_cache (
    cache_key  TEXT PRIMARY KEY,
    blob_key   TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at TIMESTAMPTZ
);
`
