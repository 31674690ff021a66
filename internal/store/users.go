package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"charhub.dev/character-chat/internal/auth"
)

// UserStore keeps user profiles in SQLite. Usernames are deliberately not
// unique: the schema matches the documented behavior where lookup is a scan
// and the first matching credential wins.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(dataSourceName string) (*UserStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &UserStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *UserStore) Close() error {
	return s.db.Close()
}

func (s *UserStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        username TEXT NOT NULL, -- intentionally not UNIQUE
        password_hash TEXT NOT NULL,
        name TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        created_at DATETIME NOT NULL,
        last_login DATETIME NOT NULL,
        favorites_json TEXT NOT NULL DEFAULT '[]'
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Create hashes the password and inserts a new profile.
func (s *UserStore) Create(username, password string) (*UserProfile, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &UserProfile{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		LastLogin:    now,
		Favorites:    []string{},
	}

	favorites, err := json.Marshal(user.Favorites)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal favorites: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO users (id, username, password_hash, name, email, created_at, last_login, favorites_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.Name, user.Email,
		user.CreatedAt, user.LastLogin, string(favorites),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// Authenticate scans username matches in insertion order and returns the
// first whose hash verifies, with last_login advanced. No match is
// ErrUserNotFound.
func (s *UserStore) Authenticate(username, password string) (*UserProfile, error) {
	rows, err := s.db.Query(
		`SELECT id, username, password_hash, name, email, created_at, last_login, favorites_json
         FROM users WHERE username = ? ORDER BY created_at, id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var candidates []UserProfile
	favoritesByID := make(map[string]string)
	for rows.Next() {
		var user UserProfile
		var favorites string
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Name,
			&user.Email, &user.CreatedAt, &user.LastLogin, &favorites); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		favoritesByID[user.ID] = favorites
		candidates = append(candidates, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	rows.Close()

	for i := range candidates {
		user := candidates[i]
		if !auth.CheckPasswordHash(password, user.PasswordHash) {
			continue
		}

		if err := json.Unmarshal([]byte(favoritesByID[user.ID]), &user.Favorites); err != nil {
			user.Favorites = []string{}
		}

		user.LastLogin = time.Now()
		if _, err := s.db.Exec("UPDATE users SET last_login = ? WHERE id = ?", user.LastLogin, user.ID); err != nil {
			log.Printf("Error updating last_login for user %s: %v", user.ID, err)
		}
		return &user, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
}
