package config

import (
	_ "embed"
	"errors"
	"os"
	"reflect"
	"strings"

	shlex "github.com/anmitsu/go-shlex"
	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/minishell/core/command"
	"github.com/josephlewis42/minishell/core/token"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"

	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs

	Prompt   string `json:"prompt"`
	Color    string `json:"color" validate:"oneof=always auto never"`
	Readline bool   `json:"readline"`
	Launcher string `json:"launcher"`
	AppLog   string `json:"app_log"`

	Limits Limits `json:"limits"`
}

type Limits struct {
	MaxTokens      int `json:"max_tokens" validate:"gte=1"`
	MaxTokenLength int `json:"max_token_length" validate:"gte=1"`
	MaxCommands    int `json:"max_commands" validate:"gte=1"`
	MaxArgs        int `json:"max_args" validate:"gte=1"`
}

// TokenLimits returns the limits applied while tokenizing.
func (l Limits) TokenLimits() token.Limits {
	return token.Limits{
		MaxTokens:      l.MaxTokens,
		MaxTokenLength: l.MaxTokenLength,
	}
}

// CommandLimits returns the limits applied while building commands.
func (l Limits) CommandLimits() command.Limits {
	return command.Limits{
		MaxCommands: l.MaxCommands,
		MaxArgs:     l.MaxArgs,
	}
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := c.LauncherArgs(); err != nil {
		return err
	}
	return nil
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewMemMapFs()
	}
	return c.configFs
}

// LauncherArgs splits the launcher setting into an argument list. A nil result
// means the running binary should be used.
func (c *Configuration) LauncherArgs() ([]string, error) {
	if strings.TrimSpace(c.Launcher) == "" {
		return nil, nil
	}
	args, err := shlex.Split(c.Launcher, true)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errors.New("launcher: empty command")
	}
	return args, nil
}

// OpenAppLog opens the application log in an append only state. It returns
// nil if the log is disabled.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	if c.AppLog == "" {
		return nil, nil
	}
	return c.fs().OpenFile(c.AppLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadAppLog() (afero.File, error) {
	if c.AppLog == "" {
		return nil, errors.New("app_log isn't configured")
	}
	return c.fs().OpenFile(c.AppLog, os.O_RDONLY, 0600)
}

// Default returns the built in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	out.configFs = afero.NewOsFs()
	return &out
}
