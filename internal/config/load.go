package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/tauraamui/mvflow/pkg/configdef"
)

func load() (configdef.Values, error) {
	var values configdef.Values

	if err := env.ParseWithOptions(&values, env.Options{
		Prefix:      configdef.EnvPrefix,
		Environment: environment(),
	}); err != nil {
		return configdef.Values{}, errors.Wrap(err, "parsing configuration error")
	}

	if err := values.RunValidate(); err != nil {
		return configdef.Values{}, err
	}

	return values, nil
}

var environ = func() []string {
	return os.Environ()
}

func environment() map[string]string {
	vars := environ()
	m := make(map[string]string, len(vars))
	for _, kv := range vars {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}
