// Package config holds the monitor's persistent configuration.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".kmon"
	configFile string = "config.yml"
)

// DefaultMaxBacktraceDepth bounds stack unwinding when the config file
// does not set max-backtrace-depth.
const DefaultMaxBacktraceDepth = 64

// Config defines all configuration options available to be set through
// the config file.
type Config struct {
	// Command aliases, merged into the built-in command table.
	Aliases map[string][]string `yaml:"aliases"`

	// DisplayColor is the ANSI SGR code used to highlight addresses in
	// monitor output. The two low attribute bits are always masked off.
	DisplayColor int `yaml:"display-color"`

	// MaxBacktraceDepth bounds the number of frames backtrace walks
	// before giving up on a corrupted frame-pointer chain.
	MaxBacktraceDepth int `yaml:"max-backtrace-depth"`
}

// GetMaxBacktraceDepth returns the configured unwind bound, or the
// default when unset.
func (c *Config) GetMaxBacktraceDepth() int {
	if c == nil || c.MaxBacktraceDepth <= 0 {
		return DefaultMaxBacktraceDepth
	}
	return c.MaxBacktraceDepth
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.\n", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.\n", err)
		return &Config{}
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("Error creating default config file: %v\n", err)
			return &Config{}
		}
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Printf("Closing config file failed: %v.\n", err)
		}
	}()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		fmt.Printf("Unable to read config data: %v.\n", err)
		return &Config{}
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		fmt.Printf("Unable to decode config file: %v.\n", err)
		return &Config{}
	}

	return &c
}

// SaveConfig will marshal and save the config struct to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for the kmon kernel monitor.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Provided aliases will be added to the default aliases for a given command.
aliases:
  # command: ["alias1", "alias2"]

# Uncomment the following line and set your preferred ANSI foreground color
# for addresses in monitor output. The two low attribute bits are masked off.
# display-color: 36

# Maximum number of stack frames the backtrace command will walk.
# max-backtrace-depth: 64
`)
	return err
}

func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets full path to given config file name.
func GetConfigFilePath(file string) (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return path.Join(usr.HomeDir, configDir, file), nil
}
