// Package config holds the default-field registry and loads settings through viper.
package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/where"
	"github.com/spf13/viper"
)

const fileType = "toml"

// EnvKeyReplacer maps dotted keys to PROJECTOR_SECTION_NAME variables.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// File is the path of the config file, whether or not it exists.
func File() string {
	return filepath.Join(where.Config(), constant.Projector+"."+fileType)
}

// Setup registers defaults and environment bindings, then reads the config
// file if there is one.
func Setup() error {
	viper.SetConfigName(constant.Projector)
	viper.SetConfigType(fileType)
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.Projector)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	err := viper.ReadInConfig()
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return nil
	}
	return err
}
