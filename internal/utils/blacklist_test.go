package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBlacklist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n\nHQ Clean Audio\n  cam  \n"), 0o644))

	blacklist, err := LoadBlacklist(path)
	require.NoError(t, err)
	assert.Equal(t, 2, blacklist.Len())

	matched, term := blacklist.IsBlacklisted("Leo (2023) Tamil HQ Clean Audio 720p")
	assert.True(t, matched)
	assert.Equal(t, "hq clean audio", term)

	matched, _ = blacklist.IsBlacklisted("Leo (2023) Tamil 1080p WEB-DL")
	assert.False(t, matched)
}

func TestLoadBlacklistMissingFile(t *testing.T) {
	blacklist, err := LoadBlacklist(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Zero(t, blacklist.Len())
}

func TestNilBlacklist(t *testing.T) {
	var blacklist *Blacklist
	matched, _ := blacklist.IsBlacklisted("anything")
	assert.False(t, matched)
	assert.Zero(t, blacklist.Len())
}
