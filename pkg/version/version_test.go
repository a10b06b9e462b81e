package version_test

import (
	"runtime"
	"testing"

	// Packages
	version "github.com/mutablelogic/go-chunkup/pkg/version"
	assert "github.com/stretchr/testify/assert"
)

func Test_Version(t *testing.T) {
	assert := assert.New(t)
	assert.NotEmpty(version.Version())

	version.GitTag = "v1.2.3"
	defer func() { version.GitTag = "" }()
	assert.Equal("v1.2.3", version.Version())
}

func Test_Version_Branch(t *testing.T) {
	version.GitBranch = "main"
	defer func() { version.GitBranch = "" }()
	assert.Equal(t, "main", version.Version())
}

func Test_Version_Get(t *testing.T) {
	assert := assert.New(t)
	version.GitSource = "github.com/mutablelogic/go-chunkup"
	defer func() { version.GitSource = "" }()

	info := version.Get("chunkup")
	assert.Equal("chunkup", info.Name)
	assert.Equal(runtime.Version(), info.Compiler)
	assert.Equal("github.com/mutablelogic/go-chunkup", info.Source)
	assert.Equal(version.Version(), info.Version)
	assert.Contains(info.String(), "chunkup")
}
