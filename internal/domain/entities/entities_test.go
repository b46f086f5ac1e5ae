package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestTaskVisibleOn(t *testing.T) {
	task := Task{ID: "t1", Content: "write report", Date: "2024-01-01", DeletedOn: strPtr("2024-01-03")}

	assert.True(t, task.VisibleOn("2024-01-01"))
	assert.True(t, task.VisibleOn("2024-01-02"))
	assert.False(t, task.VisibleOn("2024-01-03"))
	assert.False(t, task.VisibleOn("2024-02-01"))

	live := Task{ID: "t2", Content: "stretch", Date: "2024-01-01"}
	assert.True(t, live.VisibleOn("2030-12-31"))
}

func TestValidityContains(t *testing.T) {
	v := Validity{From: "2024-01-01", Until: "2024-01-03"}

	assert.False(t, v.Contains("2023-12-31"))
	assert.True(t, v.Contains("2024-01-01"))
	assert.True(t, v.Contains("2024-01-02"))
	assert.False(t, v.Contains("2024-01-03"))
}

func TestFilterVisible(t *testing.T) {
	tasks := []Task{
		{ID: "a", Content: "a", Date: "2024-01-01"},
		{ID: "b", Content: "b", Date: "2024-01-01", DeletedOn: strPtr("2024-01-02")},
	}

	visible := FilterVisible(tasks, "2024-01-02")
	require.Len(t, visible, 1)
	assert.Equal(t, "a", visible[0].ID)

	assert.Empty(t, FilterVisible(nil, "2024-01-02"))
}

func TestStringListRoundTrip(t *testing.T) {
	value, err := StringList{"go", "notes"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["go","notes"]`, value)

	var l StringList
	require.NoError(t, l.Scan(`["go","notes"]`))
	assert.Equal(t, StringList{"go", "notes"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Equal(t, StringList{}, l)
}

func TestStringListCorrupted(t *testing.T) {
	var l StringList
	err := l.Scan("not json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptData))
}

func TestCredentialListCorrupted(t *testing.T) {
	var l CredentialList
	err := l.Scan([]byte(`{"label":`))
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2024-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)

	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, d.Day())
}
