package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "(?)", placeholders(1, 1))
	assert.Equal(t, "(?,?,?)", placeholders(1, 3))
	assert.Equal(t, "(?,?),(?,?)", placeholders(2, 2))
}

func TestTimestampArg(t *testing.T) {
	assert.Nil(t, timestampArg(nil))

	empty := ""
	assert.Nil(t, timestampArg(&empty))

	iso := "2024-04-02T01:30:00Z"
	assert.Equal(t, "2024-04-02 01:30:00", timestampArg(&iso))

	offset := "2024-04-02T01:30:00-05:00"
	assert.Equal(t, "2024-04-02 06:30:00", timestampArg(&offset), "offsets normalize to UTC")

	day := "2024-04-02"
	assert.Equal(t, "2024-04-02 00:00:00", timestampArg(&day))

	garbage := "yesterday"
	assert.Nil(t, timestampArg(&garbage))
}

func TestNullableArgs(t *testing.T) {
	assert.Nil(t, timeArg(nil))
	ts := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-10 09:30:00", timeArg(&ts))

	assert.Nil(t, intArg(nil))
	n := 7
	assert.Equal(t, 7, intArg(&n))

	assert.Nil(t, floatArg(nil))
	f := 1.5
	assert.Equal(t, 1.5, floatArg(&f))
}
