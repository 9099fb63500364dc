package history

import (
	"Global_SpeedTest_Go/internal/engine"
	"Global_SpeedTest_Go/pkg/model"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    total INTEGER NOT NULL,
    interrupted INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    position INTEGER NOT NULL,
    key TEXT NOT NULL,
    resolved_name TEXT,
    host TEXT,
    ip TEXT,
    region TEXT,
    ping_ms REAL,
    timestamp_utc TEXT,
    download_mbps REAL,
    downloaded_bytes INTEGER,
    elapsed_seconds REAL,
    test_url TEXT,
    error_message TEXT,
    error_kind TEXT
);
CREATE INDEX IF NOT EXISTS idx_results_key ON results(key);
`

// timeLayout 是定宽的 UTC 时间格式，字符串顺序与时间顺序一致
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run 是保存在历史记录中的一次批量测试
type Run struct {
	RunID       string              `json:"runId"`
	StartedAt   time.Time           `json:"startedAt"`
	Total       int                 `json:"total"`
	Interrupted bool                `json:"interrupted"`
	Results     []model.ProbeResult `json:"results"`
}

// Store 是基于 SQLite 的测试历史
type Store struct {
	db *sql.DB
}

// Open 打开或创建历史数据库
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("无法创建数据库目录: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// 设置数据库编码为UTF-8
	if _, err := db.Exec("PRAGMA encoding = 'UTF-8'"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化历史数据表失败: %w", err)
	}
	return &Store{db: db}, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBatch 在一个事务中写入批量测试和它的全部结果，中断的批量测试也会保存
func (s *Store) SaveBatch(ctx context.Context, batch engine.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, total, interrupted) VALUES (?, ?, ?, ?)`,
		batch.RunID, batch.StartedAt.UTC().Format(timeLayout), batch.Total, batch.Interrupted,
	); err != nil {
		return fmt.Errorf("写入测试记录失败: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO results (run_id, position, key, resolved_name, host, ip, region, ping_ms, timestamp_utc,
    download_mbps, downloaded_bytes, elapsed_seconds, test_url, error_message, error_kind)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range batch.Results {
		if _, err := stmt.ExecContext(ctx,
			batch.RunID, i, r.Key, r.ResolvedName, r.Host, r.IP, r.Region, r.PingMs, r.TimestampUTC,
			r.DownloadMbps, r.DownloadedBytes, r.ElapsedSeconds, r.TestURL, r.ErrorMessage, r.ErrorKind,
		); err != nil {
			return fmt.Errorf("写入 %s 的结果失败: %w", r.Key, err)
		}
	}
	return tx.Commit()
}

// Recent 返回最近的 limit 次测试，最新的在前
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, total, interrupted FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	var runs []Run
	for rows.Next() {
		var (
			run       Run
			startedAt string
		)
		if err := rows.Scan(&run.RunID, &startedAt, &run.Total, &run.Interrupted); err != nil {
			rows.Close()
			return nil, err
		}
		run.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("无效的测试时间 %q: %w", startedAt, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		results, err := s.query(ctx, `WHERE run_id = ? ORDER BY position`, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Results = results
	}
	return runs, nil
}

// ServerHistory 返回某个服务器最近的成功结果，最新的在前
func (s *Store) ServerHistory(ctx context.Context, key string, limit int) ([]model.ProbeResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.query(ctx, `WHERE key = ? AND error_message = '' ORDER BY timestamp_utc DESC, id DESC LIMIT ?`, key, limit)
}

func (s *Store) query(ctx context.Context, where string, args ...interface{}) ([]model.ProbeResult, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT key, resolved_name, host, ip, region, ping_ms, timestamp_utc,
    download_mbps, downloaded_bytes, elapsed_seconds, test_url, error_message, error_kind
FROM results `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ProbeResult
	for rows.Next() {
		var r model.ProbeResult
		if err := rows.Scan(&r.Key, &r.ResolvedName, &r.Host, &r.IP, &r.Region, &r.PingMs, &r.TimestampUTC,
			&r.DownloadMbps, &r.DownloadedBytes, &r.ElapsedSeconds, &r.TestURL, &r.ErrorMessage, &r.ErrorKind); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
