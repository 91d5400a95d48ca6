package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectHref(t *testing.T) {
	cases := []struct {
		name string
		href string
		want bool
	}{
		{"query only", "?sort=name", true},
		{"absolute scheme", "https://other.example/x", true},
		{"root absolute", "/roms/nes/", true},
		{"parent relative", "../sibling/", true},
		{"self link", "./", true},
		{"empty", "", true},
		{"plain subdirectory", "nes/", false},
		{"plain file", "Super Mario Bros. (USA).nes", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, rejectHref(c.href), c.href)
		})
	}
}

func TestPathSegments(t *testing.T) {
	root, err := url.Parse("https://archive.example/roms/")
	require.NoError(t, err)

	file, err := url.Parse("https://archive.example/roms/No-Intro/nes/Super%20Mario%20Bros.%20%28USA%29.nes")
	require.NoError(t, err)

	group, platform := pathSegments(root, file)

	assert.Equal(t, "No-Intro", group)
	assert.Equal(t, "nes", platform)
}

func TestPathSegments_SingleLevel(t *testing.T) {
	root, err := url.Parse("https://archive.example/roms/")
	require.NoError(t, err)

	file, err := url.Parse("https://archive.example/roms/nes/game.nes")
	require.NoError(t, err)

	group, platform := pathSegments(root, file)

	// only one path segment below the root: it is the group, and
	// platform falls back to it per §3.
	assert.Equal(t, "nes", group)
	assert.Equal(t, "nes", platform)
}

func TestPathLeaf(t *testing.T) {
	assert.Equal(t, "game.nes", pathLeaf("/roms/nes/game.nes"))
	assert.Equal(t, "game.nes", pathLeaf("game.nes"))
}
