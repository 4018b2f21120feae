package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

//go:embed default_config.toml
var defaultConfig string

// TokenRef is written in place of a literal remote token.
const TokenRef = "${CINESYNC_REMOTE_TOKEN}"

const writtenHeader = `# cinesync configuration, written by "cinesync config init".
# remote.token is read from CINESYNC_REMOTE_TOKEN when the daemon starts.

`

// WriteDefault writes the commented example config to path, creating
// parent directories.
func WriteDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0644)
}

// Write encodes c as TOML and replaces path through a temp file in the same
// directory. A literal remote token is never written; TokenRef takes its
// place. The file mode is 0600.
func (c *Config) Write(path string) error {
	out := *c
	if out.Remote.Token != "" {
		out.Remote.Token = TokenRef
	}

	var buf bytes.Buffer
	buf.WriteString(writtenHeader)
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
