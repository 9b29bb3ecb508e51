// internal/admin/model.go
//
// Administrator record and its public-safe projection.
//
// Context
// -------
// `admin_users` rows are provisioned out-of-band.  This subsystem reads
// them during credential verification and writes exactly one column,
// `last_login`, after a successful sign-in.
//
//	admin_users (id PK, email UNIQUE, password_hash, created_at, last_login NULL)
//
// The hash never leaves this package's callers inside the verifier.  Every
// value that crosses a trust boundary (HTTP response, session slot, log
// line) is a PublicRecord, which has no field that could hold it.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package admin

import "time"

// Record mirrors one row in `admin_users`.
type Record struct {
	ID           string     `db:"id"            json:"id"`
	Email        string     `db:"email"         json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	LastLogin    *time.Time `db:"last_login"    json:"last_login"`
}

// PublicRecord is the projection handed to clients and stored in sessions.
type PublicRecord struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

// Public strips every secret field from r.
func (r Record) Public() PublicRecord {
	p := PublicRecord{
		ID:        r.ID,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
	}
	if r.LastLogin != nil {
		t := *r.LastLogin
		p.LastLogin = &t
	}
	return p
}
