package postgres

// schema is applied on startup; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    role VARCHAR(20) NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('guide', 'learner', 'admin'))
);

CREATE TABLE IF NOT EXISTS services (
    id TEXT PRIMARY KEY,
    guide_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title TEXT NOT NULL DEFAULT '',
    -- number, string or NULL exactly as the guide entered it
    price JSONB,
    duration_minutes INTEGER NOT NULL,

    CONSTRAINT valid_duration CHECK (duration_minutes > 0)
);

CREATE INDEX IF NOT EXISTS idx_services_guide_id ON services(guide_id);

CREATE TABLE IF NOT EXISTS availabilities (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    guide_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    weekly_availability JSONB NOT NULL DEFAULT '{}'::jsonb,
    unavailable_dates TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bookings (
    id UUID PRIMARY KEY,
    service_id TEXT NOT NULL REFERENCES services(id),
    learner_id TEXT NOT NULL REFERENCES users(id),
    guide_id TEXT NOT NULL REFERENCES users(id),
    date_and_time TIMESTAMP WITH TIME ZONE NOT NULL,
    duration_minutes INTEGER NOT NULL,
    price JSONB,
    is_free BOOLEAN NOT NULL DEFAULT FALSE,
    status VARCHAR(20) NOT NULL,
    learner_notes TEXT NOT NULL DEFAULT '',
    meeting_link TEXT NOT NULL DEFAULT '',
    session_notes TEXT NOT NULL DEFAULT '',

    rating_score INTEGER,
    rating_comment TEXT,
    rated_at TIMESTAMP WITH TIME ZONE,
    feedback TEXT,
    feedback_at TIMESTAMP WITH TIME ZONE,

    achievements JSONB NOT NULL DEFAULT '[]'::jsonb,
    reschedule_history JSONB NOT NULL DEFAULT '[]'::jsonb,

    cancel_reason TEXT,
    cancelled_by TEXT,
    cancelled_at TIMESTAMP WITH TIME ZONE,

    session_started_at TIMESTAMP WITH TIME ZONE,
    session_ended_at TIMESTAMP WITH TIME ZONE,
    paid_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_status CHECK (status IN ('pending', 'confirmed', 'upcoming', 'in-progress', 'completed', 'cancelled', 'no-show')),
    CONSTRAINT valid_rating CHECK (rating_score IS NULL OR rating_score BETWEEN 1 AND 5),
    CONSTRAINT feedback_after_rating CHECK (feedback IS NULL OR rating_score IS NOT NULL)
);

-- one live booking per guide and start time
CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_guide_slot ON bookings(guide_id, date_and_time)
    WHERE status NOT IN ('cancelled', 'no-show');

CREATE INDEX IF NOT EXISTS idx_bookings_learner_id ON bookings(learner_id);
CREATE INDEX IF NOT EXISTS idx_bookings_open_status ON bookings(status, date_and_time)
    WHERE status IN ('pending', 'confirmed', 'upcoming');

CREATE TABLE IF NOT EXISTS learner_achievements (
    id SERIAL PRIMARY KEY,
    learner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    booking_id UUID NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_learner_achievements_learner_id ON learner_achievements(learner_id);

CREATE TABLE IF NOT EXISTS guide_ratings (
    guide_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    average DOUBLE PRECISION NOT NULL DEFAULT 0,
    count INTEGER NOT NULL DEFAULT 0,
    total DOUBLE PRECISION NOT NULL DEFAULT 0
);
`
