package reconmem

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Activity is an append-only log entry. Rows are never updated.
type Activity struct {
	ID        int64    `db:"id"`
	Topic     string   `db:"topic"`
	Time      Time     `db:"time"`
	Uniq      *string  `db:"uniq"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	Radius    *int64   `db:"radius"`
	Content   string   `db:"content"`
}

func (a Activity) Ident() int64 { return a.ID }

// Decode unmarshals the JSON content into v.
func (a Activity) Decode(v any) error {
	return json.Unmarshal([]byte(a.Content), v)
}

type NewActivity struct {
	Topic     string
	Time      time.Time
	Uniq      *string
	Latitude  *float64
	Longitude *float64
	Radius    *int64
	// Content is marshalled to JSON; json.RawMessage is stored as is.
	Content any
}

var Activities = Table[Activity]{Name: "activity", Keyless: true}

// InsertActivity appends an entry. If Uniq is set and an entry with the same
// tag was already logged, nothing is written and false is returned.
func (s *Store) InsertActivity(a NewActivity) (bool, error) {
	if strings.TrimSpace(a.Topic) == "" {
		return false, invalid("activity topic is empty")
	}

	content, err := json.Marshal(a.Content)
	if err != nil {
		return false, invalid("activity content: %v", err)
	}

	when := a.Time
	if when.IsZero() {
		when = s.now()
	}

	row := Activity{
		Topic:     a.Topic,
		Time:      At(when),
		Uniq:      a.Uniq,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Radius:    a.Radius,
		Content:   string(content),
	}

	inserted := false
	err = s.tx(func(q Queryer) error {
		if a.Uniq != nil {
			existing, err := Activities.getBy(q, "uniq = ?", *a.Uniq)
			if err != nil || existing != nil {
				return err
			}
		}
		if _, err := Activities.insert(q, row); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// ActivityQuery selects log entries. Zero fields do not constrain.
type ActivityQuery struct {
	// Topic may contain % wildcards.
	Topic string
	Since time.Time
	Until time.Time
	// Location keeps only entries with coordinates.
	Location bool
}

// QueryActivity lists matching entries, oldest first.
func (s *Store) QueryActivity(aq ActivityQuery) ([]Activity, error) {
	var (
		where []string
		args  []any
	)
	if aq.Topic != "" {
		where = append(where, "topic LIKE ?")
		args = append(args, aq.Topic)
	}
	if !aq.Since.IsZero() {
		where = append(where, "time >= ?")
		args = append(args, At(aq.Since))
	}
	if !aq.Until.IsZero() {
		where = append(where, "time < ?")
		args = append(args, At(aq.Until))
	}
	if aq.Location {
		where = append(where, "latitude IS NOT NULL AND longitude IS NOT NULL")
	}

	query := "SELECT * FROM activity"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY time, id"

	var rows []Activity
	if err := sqlx.Select(s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	return rows, nil
}
