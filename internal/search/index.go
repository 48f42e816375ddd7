package search

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/matheus3301/wppchat/internal/search/migrations"
	"github.com/matheus3301/wppchat/internal/store"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

const snippetRadius = 32

// Index is a SQLite table of message bodies used for search-in-conversation.
type Index struct {
	*sql.DB
}

// Result is one matching message with a highlighted excerpt.
type Result struct {
	ChatID    string
	MessageID string
	SenderID  string
	Timestamp int64
	Snippet   string
}

// MigrateResult describes what happened during migration.
type MigrateResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Open connects to the index database. An in-memory database lives only as
// long as its single connection, so the pool is pinned to one.
func Open(dsn string) (*Index, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	return &Index{db}, nil
}

// Migrate applies pending schema migrations.
func (ix *Index) Migrate() (*MigrateResult, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(ix.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	err = m.Up()
	changed := true
	if err == migrate.ErrNoChange {
		changed = false
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("migration up: %w", err)
	}

	version, dirty, _ := m.Version()
	return &MigrateResult{Version: version, Dirty: dirty, Changed: changed}, nil
}

// Upsert indexes m, or drops it from the index if it has nothing searchable.
func (ix *Index) Upsert(m store.Message) error {
	body := indexedText(m)
	if body == "" {
		return ix.Remove(m.ChatID, m.ID)
	}
	_, err := ix.Exec(`
		INSERT INTO messages (chat_id, msg_id, sender_id, body, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, msg_id) DO UPDATE SET
			sender_id = excluded.sender_id,
			body = excluded.body,
			timestamp = excluded.timestamp`,
		m.ChatID, m.ID, m.SenderID, body, m.Timestamp)
	return err
}

// Remove drops one message.
func (ix *Index) Remove(chatID, msgID string) error {
	_, err := ix.Exec(`DELETE FROM messages WHERE chat_id = ? AND msg_id = ?`, chatID, msgID)
	return err
}

// ReplaceChat rewrites every indexed message of a chat in one transaction.
func (ix *Index) ReplaceChat(chatID string, msgs []store.Message) error {
	tx, err := ix.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO messages (chat_id, msg_id, sender_id, body, timestamp) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range msgs {
		body := indexedText(m)
		if body == "" {
			continue
		}
		if _, err := stmt.Exec(chatID, m.ID, m.SenderID, body, m.Timestamp); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search finds messages in chatID whose text contains query, newest first.
// Matching is case-insensitive for ASCII.
func (ix *Index) Search(chatID, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := ix.Query(`
		SELECT chat_id, msg_id, sender_id, body, timestamp
		FROM messages
		WHERE chat_id = ? AND body LIKE ? ESCAPE '\'
		ORDER BY timestamp DESC
		LIMIT ?`, chatID, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var r Result
		var body string
		if err := rows.Scan(&r.ChatID, &r.MessageID, &r.SenderID, &body, &r.Timestamp); err != nil {
			return nil, err
		}
		r.Snippet = snippet(body, query)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns how many messages of a chat are indexed.
func (ix *Index) Count(chatID string) (int, error) {
	var n int
	err := ix.QueryRow(`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&n)
	return n, err
}

func indexedText(m store.Message) string {
	if m.Deleted {
		return ""
	}
	text := m.Content
	if m.Attachment != nil && m.Attachment.Filename() != "" {
		if text != "" {
			text += " "
		}
		text += m.Attachment.Filename()
	}
	return text
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet cuts a window around the first match and wraps it in << >>.
func snippet(body, query string) string {
	runes := []rune(body)
	lower := []rune(strings.ToLower(body))
	q := []rune(strings.ToLower(query))
	if len(lower) != len(runes) {
		return body
	}
	at := indexRunes(lower, q)
	if at < 0 {
		return body
	}
	start := max(at-snippetRadius, 0)
	end := min(at+len(q)+snippetRadius, len(runes))

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:at]))
	b.WriteString("<<")
	b.WriteString(string(runes[at : at+len(q)]))
	b.WriteString(">>")
	b.WriteString(string(runes[at+len(q) : end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j := range sub {
			if s[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
