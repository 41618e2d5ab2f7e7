package db

import (
	"context"
	"database/sql"

	"canvas-analytics-etl/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

func NewConnection(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.Database.ConnectionLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the four reporting tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS students (
			student_id   VARCHAR(100) PRIMARY KEY,
			sis_id       VARCHAR(100) NOT NULL UNIQUE,
			name         VARCHAR(255) NOT NULL,
			email        VARCHAR(255) NOT NULL,
			section_name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			id                     BIGINT AUTO_INCREMENT PRIMARY KEY,
			student_id             VARCHAR(100) NOT NULL,
			type                   VARCHAR(100),
			role                   VARCHAR(100),
			last_activity_at       DATETIME NULL,
			inactive_days          INT NULL,
			total_activity_time    DOUBLE NULL,
			sis_course_id          VARCHAR(100),
			sis_section_id         VARCHAR(100),
			sis_user_id            VARCHAR(100),
			current_grade          DOUBLE NULL,
			current_score          DOUBLE NULL,
			final_grade            DOUBLE NULL,
			final_score            DOUBLE NULL,
			unposted_current_grade DOUBLE NULL,
			unposted_current_score DOUBLE NULL,
			unposted_final_grade   DOUBLE NULL,
			unposted_final_score   DOUBLE NULL,
			CONSTRAINT fk_enrollment_student FOREIGN KEY (student_id) REFERENCES students (student_id)
		)`,
		`CREATE TABLE IF NOT EXISTS assignments (
			id       INT UNSIGNED PRIMARY KEY,
			title    VARCHAR(200) NOT NULL,
			due_date DATETIME NULL
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id            BIGINT AUTO_INCREMENT PRIMARY KEY,
			student_id    VARCHAR(100) NOT NULL,
			assignment_id INT UNSIGNED NOT NULL,
			submitted_at  DATETIME NULL,
			score         DOUBLE NULL,
			status        VARCHAR(20) NOT NULL,
			UNIQUE KEY uq_submission (student_id, assignment_id),
			CONSTRAINT fk_submission_student FOREIGN KEY (student_id) REFERENCES students (student_id),
			CONSTRAINT fk_submission_assignment FOREIGN KEY (assignment_id) REFERENCES assignments (id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
