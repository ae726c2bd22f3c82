package app

import (
	"strings"
	"testing"

	"github.com/specialistvlad/querycore/internal/hcl_adapter"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name      string
		level     string
		format    string
		wantDebug bool
		wantInfo  string
	}{
		{name: "defaults", wantInfo: "level=INFO msg=hello"},
		{name: "debug text", level: "debug", format: "text", wantDebug: true, wantInfo: "level=INFO msg=hello"},
		{name: "json", level: "info", format: "JSON", wantInfo: `"msg":"hello"`},
		{name: "warn drops info", level: "WARN", format: "json"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf testutil.SafeBuffer
			logger, err := newLogger(tc.level, tc.format, &buf)
			require.NoError(t, err)

			logger.Debug("details")
			logger.Info("hello")
			assert.Equal(t, tc.wantDebug, strings.Contains(buf.String(), "details"))
			if tc.wantInfo == "" {
				assert.NotContains(t, buf.String(), "hello")
				return
			}
			assert.Contains(t, buf.String(), tc.wantInfo)
		})
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := newLogger("verbose", "text", &testutil.SafeBuffer{})
	assert.ErrorContains(t, err, `invalid log level "verbose"`)

	_, err = newLogger("info", "xml", &testutil.SafeBuffer{})
	assert.ErrorContains(t, err, `invalid log format "xml"`)

	dir := testutil.WriteFiles(t, map[string]string{"a.hcl": testutil.BlogHCL})
	_, err = NewApp(&testutil.SafeBuffer{}, &Config{ConfigPath: dir, LogLevel: "loud"}, hcl_adapter.NewLoader())
	assert.ErrorContains(t, err, "invalid log level")
}
