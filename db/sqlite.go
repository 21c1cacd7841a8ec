// Package db stores trip datasets for the offline trainer.
package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tripcost/ml"
)

type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the SQLite dataset at path.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS trips (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        distance_km REAL NOT NULL,
        vehicle_type INTEGER NOT NULL,
        fuel_gallons REAL NOT NULL,
        tolls REAL NOT NULL,
        total_cost REAL NOT NULL,
        created_at DATETIME
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_path TEXT,
        r2 REAL,
        mae REAL,
        data_points INTEGER,
        trained_at DATETIME
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTrips appends samples in one transaction.
func (s *Store) SaveTrips(samples []ml.TripSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO trips (distance_km, vehicle_type, fuel_gallons, tolls, total_cost, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range samples {
		if _, err := stmt.Exec(t.DistanceKm, int(t.VehicleType), t.FuelGallons, t.Tolls, t.TotalCost, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadTrips returns stored trips in insertion order. limit <= 0 returns all.
func (s *Store) LoadTrips(limit int) ([]ml.TripSample, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
        SELECT distance_km, vehicle_type, fuel_gallons, tolls, total_cost
        FROM trips
        ORDER BY id ASC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []ml.TripSample
	for rows.Next() {
		var t ml.TripSample
		var vehicle int
		if err := rows.Scan(&t.DistanceKm, &vehicle, &t.FuelGallons, &t.Tolls, &t.TotalCost); err != nil {
			return nil, err
		}
		t.VehicleType = ml.VehicleType(vehicle)
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

type TrainingLog struct {
	ModelPath  string    `json:"model_path"`
	R2         float64   `json:"r2"`
	MAE        float64   `json:"mae"`
	DataPoints int       `json:"data_points"`
	TrainedAt  time.Time `json:"trained_at"`
}

func (s *Store) SaveTrainingLog(entry TrainingLog) error {
	if entry.ModelPath == "" {
		return errors.New("model path required")
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
        INSERT INTO training_log (model_path, r2, mae, data_points, trained_at)
        VALUES (?, ?, ?, ?, ?)`,
		entry.ModelPath, entry.R2, entry.MAE, entry.DataPoints, entry.TrainedAt)
	return err
}

func (s *Store) LoadTrainingLog() ([]TrainingLog, error) {
	rows, err := s.db.Query(`
        SELECT model_path, r2, mae, data_points, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelPath, &log.R2, &log.MAE, &log.DataPoints, &log.TrainedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
