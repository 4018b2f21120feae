package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		content     string
		want        string
		wantMissing []string
	}{
		{
			name:    "remote url and token",
			env:     map[string]string{"CINESYNC_REMOTE_URL": "https://sync.example.com", "CINESYNC_REMOTE_TOKEN": "s3cret"},
			content: "url = \"${CINESYNC_REMOTE_URL}\"\ntoken = \"${CINESYNC_REMOTE_TOKEN}\"",
			want:    "url = \"https://sync.example.com\"\ntoken = \"s3cret\"",
		},
		{
			name:        "unset token is reported and kept",
			content:     `token = "${CINESYNC_TEST_UNSET_TOKEN}"`,
			want:        `token = "${CINESYNC_TEST_UNSET_TOKEN}"`,
			wantMissing: []string{"CINESYNC_TEST_UNSET_TOKEN"},
		},
		{
			name:    "empty value takes the fallback",
			env:     map[string]string{"CINESYNC_REMOTE_URL": ""},
			content: `url = "${CINESYNC_REMOTE_URL:-}"`,
			want:    `url = ""`,
		},
		{
			name:    "set value beats the fallback",
			env:     map[string]string{"CINESYNC_DB": "/var/lib/cinesync.db"},
			content: `path = "${CINESYNC_DB:-./data/cinesync.db}"`,
			want:    `path = "/var/lib/cinesync.db"`,
		},
		{
			name:        "required with message",
			env:         map[string]string{"CINESYNC_REMOTE_TOKEN": ""},
			content:     `token = "${CINESYNC_REMOTE_TOKEN:?needed to serve documents}"`,
			want:        `token = "${CINESYNC_REMOTE_TOKEN:?needed to serve documents}"`,
			wantMissing: []string{"CINESYNC_REMOTE_TOKEN: needed to serve documents"},
		},
		{
			name:    "literal dollar text is untouched",
			content: `token = "$CINESYNC_REMOTE_TOKEN and ${}"`,
			want:    `token = "$CINESYNC_REMOTE_TOKEN and ${}"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, missing := substituteEnvVars(tt.content)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestLoad_ServeTokenFromEnv(t *testing.T) {
	path := writeConfig(t, "[remote]\nserve = true\ntoken = \"${CINESYNC_REMOTE_TOKEN}\"\n")

	t.Run("set", func(t *testing.T) {
		t.Setenv("CINESYNC_REMOTE_TOKEN", "s3cret")
		cfg, err := Load(path)
		assert.NoError(t, err)
		if assert.NotNil(t, cfg) {
			assert.True(t, cfg.Remote.Serve)
			assert.Equal(t, "s3cret", cfg.Remote.Token)
		}
	})

	t.Run("empty fails validation", func(t *testing.T) {
		t.Setenv("CINESYNC_REMOTE_TOKEN", "")
		_, err := Load(path)
		var cfgErr *ConfigError
		if assert.ErrorAs(t, err, &cfgErr) {
			assert.Empty(t, cfgErr.Missing)
			assert.Equal(t, []Section{{Table: "remote", Problems: []string{"token: required when remote.serve is enabled"}}}, cfgErr.Sections())
		}
	})
}
