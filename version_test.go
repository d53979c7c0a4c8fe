package kinet

import (
	"testing"

	"github.com/blang/semver/v4"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	assert := require.New(t)

	// the serialized form must parse back to the same version
	parsed, err := semver.ParseTolerant(Version.String())
	assert.NoError(err)
	assert.Equal(0, Version.Compare(parsed))
}
