package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// DefaultEnvFile is the override file read when no other path is given.
const DefaultEnvFile = ".env"

type loader struct {
	envFile string
	environ []string
}

// Option customises Load.
type Option func(*loader)

// WithEnvFile sets the KEY=VALUE override file. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
	}
}

// WithEnviron replaces os.Environ() as the environment source. Entries use
// the KEY=VALUE form.
func WithEnviron(environ []string) Option {
	return func(l *loader) {
		l.environ = environ
	}
}

// Load resolves every schema key with precedence:
// process environment > override file > compiled default.
// Empty values are treated as unset. A missing override file is not an error.
func Load(opts ...Option) (*Config, error) {
	l := loader{
		envFile: DefaultEnvFile,
		environ: os.Environ(),
	}
	for _, opt := range opts {
		opt(&l)
	}

	v := viper.New()
	for _, f := range schema {
		v.SetDefault(f.viperKey(), f.def)
	}

	fileValues, err := readEnvFile(l.envFile)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(selectKnown(fileValues)); err != nil {
		return nil, fmt.Errorf("merge env file %s: %w", l.envFile, err)
	}

	for key, value := range selectKnown(parseEnviron(l.environ)) {
		v.Set(key, value)
	}

	cfg := &Config{}
	errs := validation.Errors{}
	for _, f := range schema {
		if err := f.apply(cfg, v.Get(f.viperKey())); err != nil {
			errs[f.key] = err
		}
	}

	if errs["SECRET_KEY"] == nil && cfg.IsProduction() && cfg.App.SecretKey == DefaultSecretKey {
		errs["SECRET_KEY"] = validation.NewError("validation_default_secret", "must be changed from the development default in production")
	}

	if len(errs) > 0 {
		return nil, &Error{Fields: errs}
	}

	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open env file %s: %w", path, err)
	}
	defer f.Close()

	values, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("parse env file %s: %w", path, err)
	}

	return values, nil
}

func parseEnviron(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		values[key] = value
	}
	return values
}

// selectKnown keeps the entries whose name exactly matches a schema key and
// whose value is not blank, re-keyed for viper.
func selectKnown(values map[string]string) map[string]any {
	out := make(map[string]any)
	for _, f := range schema {
		value, ok := values[f.key]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		out[f.viperKey()] = value
	}
	return out
}
