package model

import "time"

// User represents an account record as stored in the `users` table.  Json
// tags are omitted because these structs are used by the repository layer;
// handlers define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.  The plain password is never stored.
//  DisplayName  – public name shown next to the user's films.
//  IsFilmmaker  – whether the account may upload films.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    DisplayName  string    // users.display_name
    IsFilmmaker  bool      // users.is_filmmaker
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// Role values carried in the JWT "role" claim.  They are derived from the
// IsFilmmaker flag rather than stored as a column.
const (
    RoleFilmmaker = "FILMMAKER"
    RoleViewer    = "VIEWER"
)

// Role returns the JWT role string for the user.
func (u User) Role() string {
    if u.IsFilmmaker {
        return RoleFilmmaker
    }
    return RoleViewer
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
