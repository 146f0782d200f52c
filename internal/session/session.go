// Package session holds the signed-in user and display preferences shared
// by every screen. It is passed to controllers explicitly.
package session

import (
	"sync"

	"gopkg.in/guregu/null.v4"
)

// AnonymousUserID identifies requests made while signed out.
const AnonymousUserID int64 = 0

// User is the signed-in account.
type User struct {
	ID              int64
	Token           string
	FavouriteSpotID null.Int
}

// Preferences is the session and theme state.
type Preferences struct {
	mu        sync.RWMutex
	user      *User
	themeDark bool
}

// New creates preferences. user may be nil for a signed-out session.
func New(user *User, themeDark bool) *Preferences {
	p := &Preferences{themeDark: themeDark}
	if user != nil {
		u := *user
		p.user = &u
	}
	return p
}

// User returns the signed-in user.
func (p *Preferences) User() (User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return User{}, false
	}
	return *p.user, true
}

// UserID returns the signed-in user's id or AnonymousUserID.
func (p *Preferences) UserID() int64 {
	if u, ok := p.User(); ok {
		return u.ID
	}
	return AnonymousUserID
}

// SignIn replaces the current user.
func (p *Preferences) SignIn(u User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = &u
}

// SignOut clears the current user.
func (p *Preferences) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = nil
}

// ThemeDark reports whether the dark theme is active.
func (p *Preferences) ThemeDark() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.themeDark
}

// SetThemeDark switches the theme.
func (p *Preferences) SetThemeDark(dark bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.themeDark = dark
}
