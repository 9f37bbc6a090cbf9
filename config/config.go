// Package config defines the file format shared by the fake motor commands and the decoding of
// free form attribute maps into typed component configs.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/fakemotor/logging"
)

// AttributeMap is a free form, json decoded configuration section.
type AttributeMap map[string]interface{}

// Config is the content of a fake motor configuration file.
type Config struct {
	ConfigFilePath string `json:"-"`

	// Server holds the attributes of a control board server.
	Server AttributeMap `json:"server,omitempty"`
	// Client holds the attributes of a control board client.
	Client AttributeMap `json:"client,omitempty"`
	// Names seeds the name directory with "name=address" entries.
	Names []string `json:"names,omitempty"`

	Log     []logging.LoggerPatternConfig `json:"log,omitempty"`
	LogFile *logging.FileAppenderConfig   `json:"log_file,omitempty"`
}

// Validate returns an error describing the first invalid section.
func (c *Config) Validate() error {
	for idx, name := range c.Names {
		if k, v, ok := strings.Cut(name, "="); !ok || k == "" || v == "" {
			return utils.NewConfigValidationError(fmt.Sprintf("names.%d", idx),
				errors.Errorf("expected \"name=address\" but got %q", name))
		}
	}
	for idx, lpc := range c.Log {
		if err := lpc.Validate(); err != nil {
			return utils.NewConfigValidationError(fmt.Sprintf("log.%d", idx), err)
		}
	}
	if c.LogFile != nil && c.LogFile.Path == "" {
		return utils.NewConfigValidationFieldRequiredError("log_file", "path")
	}
	return nil
}

// TransformAttributeMap decodes `attributes` into a T using the `json` tags of T. Unknown
// attributes are an error so that typos in a config file do not go unnoticed.
func TransformAttributeMap[T any](attributes AttributeMap) (T, error) {
	var out T
	var forResult interface{} = &out

	if toT := reflect.TypeOf(out); toT != nil && toT.Kind() == reflect.Ptr {
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate config type %T", out)
		}
		forResult = out
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   forResult,
		Metadata: &md,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, err
	}
	if len(md.Unused) > 0 {
		return out, errors.Errorf("unknown attributes %v", md.Unused)
	}
	return out, nil
}
