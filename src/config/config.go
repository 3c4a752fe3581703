package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort         = 8080
	NodeAddress         = 0x3E8
	PollTimeout         = 100 * time.Millisecond
	DispatchWait        = 2 * time.Second
	FloorTravelDuration = 1 * time.Second
	DoorOpenDuration    = 3 * time.Second
	EnvPrefix           = "LIFTCTL_"
)

type Config struct {
	Network   NetworkConfig   `yaml:"network"`
	Car       CarConfig       `yaml:"car"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Log       LogConfig       `yaml:"log"`
}

type NetworkConfig struct {
	Addr        string        `yaml:"addr"`
	Port        int           `yaml:"port"`
	NodeAddress uint16        `yaml:"node_address"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

type CarConfig struct {
	FloorTravel time.Duration `yaml:"floor_travel"`
	DoorHold    time.Duration `yaml:"door_hold"`
}

type DispatchConfig struct {
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// SimulatorConfig points at an elevator simulator server. Empty Addr disables the mirror.
type SimulatorConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Default() Config {
	return Config{
		Network: NetworkConfig{
			Port:        DefaultPort,
			NodeAddress: NodeAddress,
			PollTimeout: PollTimeout,
		},
		Car: CarConfig{
			FloorTravel: FloorTravelDuration,
			DoorHold:    DoorOpenDuration,
		},
		Dispatch: DispatchConfig{WaitTimeout: DispatchWait},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads a YAML file on top of Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from LIFTCTL_* variables.
//   - variables from envFile are read first, a missing file is not an error
//   - process environment wins over the file
func ApplyEnv(cfg *Config, envFile string) error {
	vars := map[string]string{}
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("No env file", "path", envFile)
		case err != nil:
			return fmt.Errorf("read env file %s: %w", envFile, err)
		default:
			vars = fileVars
		}
	}
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, EnvPrefix) {
			vars[key] = value
		}
	}

	for key, value := range vars {
		name, ok := strings.CutPrefix(key, EnvPrefix)
		if !ok {
			continue
		}
		if err := cfg.set(name, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (cfg *Config) set(name, value string) error {
	var err error
	switch name {
	case "ADDR":
		cfg.Network.Addr = value
	case "PORT":
		cfg.Network.Port, err = strconv.Atoi(value)
	case "NODE_ADDRESS":
		var n uint64
		n, err = strconv.ParseUint(value, 0, 16)
		cfg.Network.NodeAddress = uint16(n)
	case "POLL_TIMEOUT":
		cfg.Network.PollTimeout, err = time.ParseDuration(value)
	case "FLOOR_TRAVEL":
		cfg.Car.FloorTravel, err = time.ParseDuration(value)
	case "DOOR_HOLD":
		cfg.Car.DoorHold, err = time.ParseDuration(value)
	case "DISPATCH_WAIT":
		cfg.Dispatch.WaitTimeout, err = time.ParseDuration(value)
	case "SIMULATOR_ADDR":
		cfg.Simulator.Addr = value
	case "LOG_LEVEL":
		cfg.Log.Level = value
	case "LOG_FILE":
		cfg.Log.File = value
	default:
		slog.Warn("Ignoring unknown variable", "name", EnvPrefix+name)
	}
	return err
}

func (cfg Config) Validate() error {
	var errs []error
	if cfg.Network.Port < 0 || cfg.Network.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", cfg.Network.Port))
	}
	if cfg.Network.PollTimeout <= 0 {
		errs = append(errs, errors.New("poll_timeout must be positive"))
	}
	if cfg.Car.FloorTravel <= 0 || cfg.Car.DoorHold <= 0 {
		errs = append(errs, errors.New("car durations must be positive"))
	}
	if cfg.Dispatch.WaitTimeout <= 0 {
		errs = append(errs, errors.New("wait_timeout must be positive"))
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (cfg Config) ListenAddr() string {
	return net.JoinHostPort(cfg.Network.Addr, strconv.Itoa(cfg.Network.Port))
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
