package flagx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "flag with equals",
			args:         []string{"-config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-l", "-n", "3"},
			allowedFlags: []string{"-l", "-n"},
			want:         []string{"-l", "-n", "3"},
		},
		{
			name:         "bool flag keeps the next token out",
			args:         []string{"-dev", "stray", "-a", ":1"},
			allowedFlags: []string{"-dev", "-a"},
			want:         []string{"-dev", "-a", ":1"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags, "-dev"))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "a.json", ConfigPath([]string{"-x", "1", "-c", "a.json"}))
	assert.Equal(t, "b.json", ConfigPath([]string{"-config=b.json"}))
	assert.Equal(t, "", ConfigPath([]string{"-a", ":50051"}))
}

func TestEnv(t *testing.T) {
	t.Setenv("MINTFLOW_TEST_STR", "value")
	t.Setenv("MINTFLOW_TEST_DUR", "250ms")
	t.Setenv("MINTFLOW_TEST_INT", "7")
	t.Setenv("MINTFLOW_TEST_BAD", "seven")

	s := "default"
	EnvString("MINTFLOW_TEST_STR", &s)
	assert.Equal(t, "value", s)

	untouched := "keep"
	EnvString("MINTFLOW_TEST_MISSING", &untouched)
	assert.Equal(t, "keep", untouched)

	var d time.Duration
	require.NoError(t, EnvDuration("MINTFLOW_TEST_DUR", &d))
	assert.Equal(t, 250*time.Millisecond, d)

	var n int
	require.NoError(t, EnvInt("MINTFLOW_TEST_INT", &n))
	assert.Equal(t, 7, n)
	require.Error(t, EnvInt("MINTFLOW_TEST_BAD", &n))
	require.Error(t, EnvDuration("MINTFLOW_TEST_BAD", &d))

	t.Setenv("MINTFLOW_TEST_LIST", " 0xa, ,0xb ")
	var list []string
	EnvList("MINTFLOW_TEST_LIST", &list)
	assert.Equal(t, []string{"0xa", "0xb"}, list)

	t.Setenv("MINTFLOW_TEST_BOOL", "true")
	var b bool
	require.NoError(t, EnvBool("MINTFLOW_TEST_BOOL", &b))
	assert.True(t, b)
	require.Error(t, EnvBool("MINTFLOW_TEST_BAD", &b))
}
