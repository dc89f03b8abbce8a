package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserCodeRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := NewUserCode()
		assert.GreaterOrEqual(t, code, 10000000)
		assert.LessOrEqual(t, code, 19999999)
	}
}

func TestDefaultNick(t *testing.T) {
	cases := []struct {
		login string
		want  string
	}{
		{"alice", "Alice"},
		{"christopher", "Christophe"},
		{"john smith", "John"},
		{"øyvind", "Øyvind"},
		{"", "12345678"},
		{"a.b", "12345678"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, DefaultNick(tc.login, 12345678), tc.login)
	}
}

func TestNewMe(t *testing.T) {
	me := NewMe("Bob")
	assert.Equal(t, "Bob", me.Nick())
	assert.True(t, me.IsMe())
	assert.Equal(t, "lanchat v1.0.0", me.Client())
	assert.NotEmpty(t, me.OperatingSystem())
	assert.False(t, me.LogonTime().IsZero())

	invalid := NewMe("not valid!")
	assert.NotEqual(t, "not valid!", invalid.Nick())
}
