package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/fakemotor/logging"
)

func TestFromReaderValidate(t *testing.T) {
	_, err := FromReader("somepath", strings.NewReader(""))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{"server": 1}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	_, err = FromReader("somepath", strings.NewReader(`{"cloud": {}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown field")

	conf, err := FromReader("somepath", strings.NewReader(`{}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &Config{ConfigFilePath: "somepath"})

	_, err = FromReader("somepath", strings.NewReader(`{"names": ["/fakeyServer/rpc"]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "names.0")

	_, err = FromReader("somepath", strings.NewReader(`{"log": [{"pattern": "a..b", "level": "debug"}]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "log.0")

	_, err = FromReader("somepath", strings.NewReader(`{"log_file": {}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"path" is required`)

	conf, err = FromReader("somepath", strings.NewReader(`{
		"server": {"local": "/fakeyServer", "axes": 4},
		"names": ["/fakeyServer/rpc=localhost:8080"],
		"log": [{"pattern": "fakemotor.*", "level": "debug"}]
	}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &Config{
		ConfigFilePath: "somepath",
		Server:         AttributeMap{"local": "/fakeyServer", "axes": 4.0},
		Names:          []string{"/fakeyServer/rpc=localhost:8080"},
		Log:            []logging.LoggerPatternConfig{{Pattern: "fakemotor.*", Level: "debug"}},
	})
}

func TestReadSubstitutesEnvironment(t *testing.T) {
	t.Setenv("FAKEMOTOR_LOCAL", "/fromEnv")
	path := filepath.Join(t.TempDir(), "board.json")
	test.That(t, os.WriteFile(path, []byte(`{"client": {"local": "${FAKEMOTOR_LOCAL}"}}`), 0o600), test.ShouldBeNil)

	conf, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, conf.Client["local"], test.ShouldEqual, "/fromEnv")

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

type sampleAttrs struct {
	Local  string    `json:"local"`
	Axes   int       `json:"axes"`
	Limits []float64 `json:"limits"`
}

func TestTransformAttributeMap(t *testing.T) {
	attrs := AttributeMap{"local": "/x", "axes": 4.0, "limits": []interface{}{-1.0, 1.0}}

	out, err := TransformAttributeMap[sampleAttrs](attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, sampleAttrs{Local: "/x", Axes: 4, Limits: []float64{-1, 1}})

	ptr, err := TransformAttributeMap[*sampleAttrs](attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ptr.Axes, test.ShouldEqual, 4)

	_, err = TransformAttributeMap[sampleAttrs](AttributeMap{"axis": 3})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown attributes")
}
