package version

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_DefaultValues(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildDate, info.BuildDate)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestGet_RuntimeFields(t *testing.T) {
	info := Get()

	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
	assert.Contains(t, info.Platform, "/")
}

func TestInfo_JSONFields(t *testing.T) {
	info := Get()

	data, err := json.Marshal(info)
	require.NoError(t, err)

	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	expectedKeys := []string{
		"version", "git_commit", "build_date", "go_version", "platform",
	}
	for _, key := range expectedKeys {
		assert.Contains(t, raw, key, "JSON should contain key: %s", key)
	}
}

func TestInfo_String(t *testing.T) {
	info := Get()
	s := info.String()

	assert.Contains(t, s, "httpmq v")
	assert.Contains(t, s, "Git Commit:")
	assert.Contains(t, s, "Build Date:")
	assert.Contains(t, s, "Go Version:")
	assert.Contains(t, s, "Platform:")
	assert.Contains(t, s, info.Version)
}

func TestShort(t *testing.T) {
	s := Short()

	assert.True(t, strings.HasPrefix(s, "httpmq v"))
	assert.Contains(t, s, Version)
	assert.Contains(t, s, GitCommit)
}

func TestInfo_JSON(t *testing.T) {
	info := Get()
	j := info.JSON()

	assert.Contains(t, j, `"version"`)
	assert.Contains(t, j, `"git_commit"`)

	var parsed map[string]interface{}
	err := json.Unmarshal([]byte(j), &parsed)
	require.NoError(t, err)
}
