package topic

import (
	"errors"
	"slices"
	"testing"
)

func TestTopic_Segments(t *testing.T) {
	tests := []struct {
		topic Topic
		want  []string
	}{
		{"plugin.hooks.ready", []string{"plugin", "hooks", "ready"}},
		{"fs.write", []string{"fs", "write"}},
		{"single", []string{"single"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String(), func(t *testing.T) {
			if got := tt.topic.Segments(); !slices.Equal(got, tt.want) {
				t.Errorf("Segments() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopic_Name(t *testing.T) {
	if got := Topic("user.created").Name(); got != "user.created" {
		t.Errorf("Name() = %q", got)
	}
}

func TestTopic_IsValid(t *testing.T) {
	tests := []struct {
		topic Topic
		valid bool
	}{
		{"user.created", true},
		{"single", true},
		{"fs.*", true},
		{"", false},
		{".leading", false},
		{"trailing.", false},
		{"double..dot", false},
		{"has space", false},
		{"tab\t.x", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			if got := tt.topic.IsValid(); got != tt.valid {
				t.Errorf("IsValid(%q) = %v, want %v", tt.topic, got, tt.valid)
			}
		})
	}
}

func TestTopic_Validate(t *testing.T) {
	if err := Topic("user.created").Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	for _, bad := range []Topic{"", "a..b", "fs.*", "**", "a b"} {
		err := bad.Validate()
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("Validate(%q) = %v, want ErrInvalid", bad, err)
		}
	}
}

func TestTopic_ValidateMessage(t *testing.T) {
	err := Topic("a..b").Validate()
	if err == nil || err.Error() != `invalid topic "a..b": segment 2 is empty` {
		t.Errorf("unexpected error %v", err)
	}
}

func TestTopic_Matches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		match   bool
	}{
		{"fs.write", "fs.write", true},
		{"fs.write", "fs.*", true},
		{"fs.batch.flushed", "fs.*", false},
		{"fs.batch.flushed", "fs.**", true},
		{"fs", "fs.**", true},
		{"fs", "fs.*", false},
		{"user.created", "*.created", true},
		{"user.deleted", "*.created", false},
		{"a.b.c.d", "a.**.d", true},
		{"a.d", "a.**.d", true},
		{"a.b.c", "a.**.d", false},
		{"anything.at.all", "**", true},
		{"fs.write", "fs.create", false},
		{"fs.write", "fs", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic)+"~"+string(tt.pattern), func(t *testing.T) {
			if got := tt.topic.Matches(tt.pattern); got != tt.match {
				t.Errorf("%q.Matches(%q) = %v, want %v", tt.topic, tt.pattern, got, tt.match)
			}
		})
	}
}

func BenchmarkTopic_Matches(b *testing.B) {
	name := Topic("plugin.hooks.ready")
	for i := 0; i < b.N; i++ {
		name.Matches("plugin.**.ready")
	}
}
