package versions

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	t.Parallel()

	info := GetVersionInfo()
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	t.Run("release version is passed through", func(t *testing.T) {
		t.Parallel()
		info := getVersionInfoWithValues("1.2.3", "abcdef1234567890", "2026-01-15T06:00:00Z")
		assert.Equal(t, "1.2.3", info.Version)
		assert.Equal(t, "abcdef1234567890", info.Commit)
		assert.True(t, strings.HasPrefix(info.BuildDate, "2026-01-15"))
	})

	t.Run("dev version is derived from commit", func(t *testing.T) {
		t.Parallel()
		info := getVersionInfoWithValues("dev", "abcdef1234567890", unknownStr)
		assert.Equal(t, "build-abcdef12", info.Version)
	})
}
