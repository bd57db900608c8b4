package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestFormatKV(t *testing.T) {
	assert.Equal(t, "", formatKV(nil))
	assert.Equal(t, "entry=3 next=later", formatKV([]interface{}{"entry", 3, "next", "later"}))
	assert.Equal(t, "a=1 dangling", formatKV([]interface{}{"a", 1, "dangling"}))
}

func TestCronLogger_DoesNotPanic(t *testing.T) {
	l := CronLogger{Logger: arbor.NewNoOpLogger()}
	l.Info("start", "entries", 2)
	l.Info("skip")
	l.Error(errors.New("boom"), "panic", "stack", "...")
}
