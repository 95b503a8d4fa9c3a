// Package database keeps a local archive of every tweet the server has
// successfully nabbed. Archiving is optional: with no database open, writes
// and reads are no-ops.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

func Open(databaseFile string) error {
	db, err := sql.Open("sqlite3", databaseFile+"?_journal_mode=WAL")
	if err != nil {
		return err
	}

	DB = db
	return nil
}

func CreateTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS tweets (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL,
			text TEXT NOT NULL,
			types TEXT NOT NULL,
			media TEXT NOT NULL,
			nabbed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := DB.Exec(query)
	return err
}

func Close() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			slog.Error("Error closing database",
				"error", err.Error())
		}
		DB = nil
	}
}

type ArchivedTweet struct {
	ID       uint64    `json:"id"`
	Username string    `json:"username"`
	Text     string    `json:"text"`
	Types    []string  `json:"types"`
	Media    []string  `json:"media"`
	NabbedAt time.Time `json:"nabbed_at"`
}

// SaveTweet upserts an archive row. Nabbing the same tweet twice refreshes
// the stored copy.
func SaveTweet(tweet ArchivedTweet) error {
	if DB == nil {
		return nil
	}

	types, err := json.Marshal(tweet.Types)
	if err != nil {
		return fmt.Errorf("encode types: %w", err)
	}
	media, err := json.Marshal(tweet.Media)
	if err != nil {
		return fmt.Errorf("encode media: %w", err)
	}

	query := `
		INSERT INTO tweets (id, username, text, types, media) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			text = excluded.text,
			types = excluded.types,
			media = excluded.media,
			nabbed_at = CURRENT_TIMESTAMP
	`
	_, err = DB.Exec(query, int64(tweet.ID), tweet.Username, tweet.Text, string(types), string(media))
	return err
}

// RecentTweets returns the newest archived tweets, most recent first.
func RecentTweets(limit int) ([]ArchivedTweet, error) {
	tweets := []ArchivedTweet{}
	if DB == nil {
		return tweets, nil
	}

	rows, err := DB.Query(
		"SELECT id, username, text, types, media, nabbed_at FROM tweets ORDER BY nabbed_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tweet ArchivedTweet
		var id int64
		var types, media string
		if err := rows.Scan(&id, &tweet.Username, &tweet.Text, &types, &media, &tweet.NabbedAt); err != nil {
			return nil, err
		}
		tweet.ID = uint64(id)
		if err := json.Unmarshal([]byte(types), &tweet.Types); err != nil {
			return nil, fmt.Errorf("decode types: %w", err)
		}
		if err := json.Unmarshal([]byte(media), &tweet.Media); err != nil {
			return nil, fmt.Errorf("decode media: %w", err)
		}
		tweets = append(tweets, tweet)
	}

	return tweets, rows.Err()
}
