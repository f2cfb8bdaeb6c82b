package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Chrome timestamps are microseconds since 1601-01-01 UTC.
const chromeEpochOffsetMicros int64 = 11644473600 * 1000 * 1000

// ChromiumSource reads a Chromium-format History database (Chrome, Edge,
// Brave, Chromium). The database is opened read-only; the browser keeps
// writing to its copy while we read.
type ChromiumSource struct {
	db *sql.DB
}

// OpenChromium opens the History database at path.
func OpenChromium(path string) (*ChromiumSource, error) {
	dsn := "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening history db %s: %w", path, err)
	}
	return &ChromiumSource{db: db}, nil
}

func (c *ChromiumSource) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *ChromiumSource) Search(ctx context.Context, start, end int64, max int) ([]VisitRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT url, IFNULL(title, ''), visit_count, last_visit_time
FROM urls
WHERE last_visit_time >= ? AND last_visit_time <= ?
ORDER BY last_visit_time DESC
LIMIT ?`, unixMSToChrome(start), unixMSToChrome(end), max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VisitRecord
	for rows.Next() {
		var r VisitRecord
		var chromeTime int64
		if err := rows.Scan(&r.URL, &r.Title, &r.VisitCount, &chromeTime); err != nil {
			return nil, err
		}
		r.LastVisitTime = chromeToUnixMS(chromeTime)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *ChromiumSource) VisitDetails(ctx context.Context, url string) ([]Visit, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT v.transition
FROM visits v
JOIN urls u ON u.id = v.url
WHERE u.url = ?`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		var transition int64
		if err := rows.Scan(&transition); err != nil {
			return nil, err
		}
		out = append(out, Visit{Transition: transitionKind(transition)})
	}
	return out, rows.Err()
}

func (c *ChromiumSource) VisitCount(ctx context.Context, url string) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT visit_count FROM urls WHERE url = ?`, url).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

// transitionKind maps Chromium's packed transition field to a kind string.
// The low byte is the core transition type; core type 1 is a typed URL,
// everything else counts as a click for our purposes.
func transitionKind(transition int64) string {
	if transition&0xFF == 1 {
		return TransitionTyped
	}
	return "link"
}

func chromeToUnixMS(t int64) int64 {
	return (t - chromeEpochOffsetMicros) / 1000
}

func unixMSToChrome(t int64) int64 {
	return t*1000 + chromeEpochOffsetMicros
}
