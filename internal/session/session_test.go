package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreferences_SignedOut(t *testing.T) {
	p := New(nil, false)

	_, ok := p.User()
	assert.False(t, ok)
	assert.Equal(t, AnonymousUserID, p.UserID())
}

func TestPreferences_SignInOut(t *testing.T) {
	p := New(&User{ID: 4, Token: "t"}, true)

	u, ok := p.User()
	assert.True(t, ok)
	assert.Equal(t, int64(4), u.ID)
	assert.True(t, p.ThemeDark())

	p.SignIn(User{ID: 9})
	assert.Equal(t, int64(9), p.UserID())

	p.SignOut()
	assert.Equal(t, AnonymousUserID, p.UserID())
}

func TestNew_CopiesUser(t *testing.T) {
	u := &User{ID: 1}
	p := New(u, false)
	u.ID = 2

	assert.Equal(t, int64(1), p.UserID())
}
