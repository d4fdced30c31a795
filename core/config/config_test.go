package config

import (
	"bytes"
	"log"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := Default()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "minishell:$ ", cfg.Prompt)
	assert.Equal(t, ColorAuto, cfg.Color)
	assert.Equal(t, 32, cfg.Limits.MaxTokens)
	assert.Equal(t, 127, cfg.Limits.MaxTokenLength)
	assert.Equal(t, 32, cfg.Limits.MaxCommands)
	assert.Equal(t, 32, cfg.Limits.MaxArgs)

	assert.Equal(t, 127, cfg.Limits.TokenLimits().MaxTokenLength)
	assert.Equal(t, 32, cfg.Limits.CommandLimits().MaxArgs)
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate  func(*Configuration)
		wantErr string
	}{
		"default": {
			mutate: func(*Configuration) {},
		},
		"bad color": {
			mutate:  func(c *Configuration) { c.Color = "sometimes" },
			wantErr: "color",
		},
		"zero tokens": {
			mutate:  func(c *Configuration) { c.Limits.MaxTokens = 0 },
			wantErr: "max_tokens",
		},
		"negative args": {
			mutate:  func(c *Configuration) { c.Limits.MaxArgs = -1 },
			wantErr: "max_args",
		},
		"unterminated launcher": {
			mutate:  func(c *Configuration) { c.Launcher = `"/bin/env` },
			wantErr: "",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()

			switch {
			case tn == "default":
				assert.NoError(t, err)
			case tc.wantErr == "":
				assert.Error(t, err)
			default:
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLauncherArgs(t *testing.T) {
	cases := map[string]struct {
		launcher string
		want     []string
	}{
		"empty":  {launcher: "", want: nil},
		"blank":  {launcher: "   ", want: nil},
		"single": {launcher: "/usr/bin/minishell", want: []string{"/usr/bin/minishell"}},
		"quoted": {
			launcher: `/usr/bin/env "MINISHELL_DEBUG=a b" minishell`,
			want:     []string{"/usr/bin/env", "MINISHELL_DEBUG=a b", "minishell"},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := Default()
			cfg.Launcher = tc.launcher
			got, err := cfg.LauncherArgs()
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInitializeFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	cfg, err := InitializeFs(fs, logger)
	require.NoError(t, err)
	assert.Equal(t, Default().Limits, cfg.Limits)
	assert.Contains(t, buf.String(), "Writing config.yaml")

	// A second run must not overwrite user edits.
	require.NoError(t, afero.WriteFile(fs, ConfigurationName, []byte("prompt: \"$ \"\ncolor: never\nlimits:\n  max_tokens: 4\n  max_token_length: 8\n  max_commands: 2\n  max_args: 3\n"), 0644))
	buf.Reset()

	cfg, err = InitializeFs(fs, logger)
	require.NoError(t, err)
	assert.Equal(t, "$ ", cfg.Prompt)
	assert.Equal(t, 4, cfg.Limits.MaxTokens)
	assert.Contains(t, buf.String(), "already exists")
}

func TestLoadFs(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := LoadFs(afero.NewMemMapFs())
		assert.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, ConfigurationName, []byte("shell: bash\n"), 0644))
		_, err := LoadFs(fs)
		assert.Error(t, err)
	})

	t.Run("invalid", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, ConfigurationName, []byte("color: purple\nlimits:\n  max_tokens: 1\n  max_token_length: 1\n  max_commands: 1\n  max_args: 1\n"), 0644))
		_, err := LoadFs(fs)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config.yaml")
	})
}

func TestAppLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg, err := InitializeFs(fs, nil)
	require.NoError(t, err)

	t.Run("disabled", func(t *testing.T) {
		cfg.AppLog = ""
		fd, err := cfg.OpenAppLog()
		assert.NoError(t, err)
		assert.Nil(t, fd)

		_, err = cfg.ReadAppLog()
		assert.Error(t, err)
	})

	t.Run("append", func(t *testing.T) {
		cfg.AppLog = "events.log"
		for _, line := range []string{"one\n", "two\n"} {
			fd, err := cfg.OpenAppLog()
			require.NoError(t, err)
			_, err = fd.WriteString(line)
			require.NoError(t, err)
			require.NoError(t, fd.Close())
		}

		data, err := afero.ReadFile(fs, "events.log")
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", string(data))

		fd, err := cfg.ReadAppLog()
		require.NoError(t, err)
		defer fd.Close()
	})
}
