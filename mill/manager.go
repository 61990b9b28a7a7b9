package mill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrOffline means no connection profile could reach the mill database.
var ErrOffline = errors.New("mill database unreachable")

// Profile is one way of reaching the mill database server. Profiles are
// tried in order; sites have different routes to the same server (LAN IP,
// VPN, hostname), so the first one that answers wins.
type Profile struct {
	Name string `yaml:"name"`
	DSN  string `yaml:"dsn"`
}

// Manager owns the connection to the mill database server. The first
// profile that answers a ping is cached for the life of the process.
type Manager struct {
	profiles []Profile
	log      *zap.Logger

	mu     sync.Mutex
	pool   *sql.DB
	active string
}

func NewManager(profiles []Profile, log *zap.Logger) *Manager {
	return &Manager{profiles: profiles, log: log}
}

// connect returns the cached pool or walks the profile list in order.
func (m *Manager) connect(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		return m.pool, nil
	}

	for _, p := range m.profiles {
		pool, err := sql.Open("mysql", p.DSN)
		if err != nil {
			m.log.Warn("bad connection profile", zap.String("profile", p.Name), zap.Error(err))
			continue
		}
		pool.SetMaxOpenConns(5)
		pool.SetMaxIdleConns(5)
		pool.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.PingContext(pingCtx)
		cancel()
		if err != nil {
			m.log.Warn("connection profile failed", zap.String("profile", p.Name), zap.Error(err))
			pool.Close()
			continue
		}

		m.log.Info("mill database connected", zap.String("profile", p.Name))
		m.pool = pool
		m.active = p.Name
		return pool, nil
	}

	return nil, ErrOffline
}

// ActiveProfile returns the name of the profile in use, or "" when offline.
func (m *Manager) ActiveProfile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Exec runs fn with a gorm handle locked to one connection that has been
// switched onto the given database.
func (m *Manager) Exec(ctx context.Context, database string, fn func(db *gorm.DB) error) error {
	pool, err := m.connect(ctx)
	if err != nil {
		return err
	}

	conn, err := pool.Conn(ctx)
	if err != nil {
		// connection went away since the cached ping
		m.reset()
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "USE `"+database+"`"); err != nil {
		return fmt.Errorf("failed to use database %s: %w", database, err)
	}

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: conn}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open gorm: %w", err)
	}

	return fn(db)
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
		m.active = ""
	}
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool == nil {
		return nil
	}
	err := m.pool.Close()
	m.pool = nil
	m.active = ""
	return err
}

// TaskRegLines implements Querier on top of the profile manager.
func (m *Manager) TaskRegLines(ctx context.Context, database, empCode, trxDate string) ([]TaskRegLine, error) {
	var lines []TaskRegLine
	err := m.Exec(ctx, database, func(db *gorm.DB) error {
		return db.Raw(`
			SELECT EmpCode, EmpName, TrxDate, OT, Hours, Amount, Status, ChargeTo
			FROM PR_TASKREGLN
			WHERE EmpCode = ? AND TrxDate = ?`,
			empCode, trxDate).
			Scan(&lines).Error
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}
