package repository

const schema = `
CREATE TABLE IF NOT EXISTS researchers (
	id_researcher INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name     TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS experiments (
	id_experiment   INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment_name TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	id_researcher   INTEGER NOT NULL REFERENCES researchers(id_researcher),
	started_at      INTEGER
);

CREATE TABLE IF NOT EXISTS compounds (
	compound_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	compound_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS measurements (
	id_measurement      INTEGER PRIMARY KEY AUTOINCREMENT,
	id_experiment       INTEGER NOT NULL REFERENCES experiments(id_experiment) ON DELETE CASCADE,
	compound_id         INTEGER NOT NULL REFERENCES compounds(compound_id),
	time_hours          REAL NOT NULL,
	od_value            REAL,
	ph_value            REAL,
	temperature_celsius REAL,
	replicate_number    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_measurements_experiment ON measurements(id_experiment);
`

const selectMeasurements = `
SELECT
	e.experiment_name,
	r.full_name,
	c.compound_name,
	m.time_hours,
	m.od_value,
	m.ph_value,
	m.temperature_celsius,
	m.replicate_number
FROM measurements m
JOIN experiments e ON m.id_experiment = e.id_experiment
JOIN compounds c ON m.compound_id = c.compound_id
JOIN researchers r ON e.id_researcher = r.id_researcher
WHERE m.id_experiment = ?
ORDER BY c.compound_name, m.time_hours, m.replicate_number, m.id_measurement
`

const selectExperimentInfo = `
SELECT e.id_experiment, e.experiment_name, e.description, r.full_name, e.started_at
FROM experiments e
JOIN researchers r ON e.id_researcher = r.id_researcher
WHERE e.id_experiment = ?
`
