package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/screa/salty/internal/crypto"
	"github.com/screa/salty/pkg/types"
)

// Defaults
const (
	DefaultConfigFile  = "salty.toml"
	DefaultFactory     = "0x0000000000FFe8B47B3e2130213B802212439497"
	DefaultWorksize    = 0x4400000
	DefaultPattern     = "00"
	DefaultLogInterval = 5
	DefaultDebugLevel  = "info"

	BackendGPU      = "gpu"
	BackendCPU      = "cpu"
	BackendEmulated = "emulated"
)

// Errors
var (
	ErrNoCallerSpecified   = errors.New("must specify --caller")
	ErrNoCodehashSpecified = errors.New("must specify either --codehash, --bytecode or --bytecode-file")
	ErrUnknownBackend      = errors.New("unknown backend")
	ErrInvalidDevice       = errors.New("invalid OpenCL device")
	ErrZeroWorksize        = errors.New("worksize must be positive")
)

// Config holds the application configuration
type Config struct {
	ConfigFile string `toml:"-"`

	Factory      string `toml:"factory"`
	Caller       string `toml:"caller"`
	Codehash     string `toml:"codehash"`
	Bytecode     string `toml:"bytecode"`
	BytecodeFile string `toml:"bytecode-file"`
	Worksize     uint32 `toml:"worksize"`
	Pattern      string `toml:"pattern"`

	Backend     string `toml:"backend"`
	Platform    int    `toml:"platform"`
	Device      int    `toml:"device"`
	Workers     int    `toml:"workers"`
	BatchSize   uint32 `toml:"batch-size"`
	Seed        uint64 `toml:"seed"`
	StopOnFound bool   `toml:"stop-on-found"`

	DebugLevel  string `toml:"debuglevel"`
	LogFile     string `toml:"log-file"`
	LogInterval int    `toml:"log-interval"` // seconds
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		ConfigFile:  DefaultConfigFile,
		Factory:     DefaultFactory,
		Worksize:    DefaultWorksize,
		Pattern:     DefaultPattern,
		Backend:     BackendGPU,
		Workers:     runtime.NumCPU(),
		StopOnFound: true,
		DebugLevel:  DefaultDebugLevel,
		LogInterval: DefaultLogInterval,
	}
}

// MergeFile overlays values from a TOML file onto c. Keys whose flag was set
// explicitly on the command line, as reported by changed, keep the flag
// value. A missing file is not an error when it is the default one.
func (c *Config) MergeFile(path string, changed func(name string) bool) error {
	var file Config
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigFile {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q in config file %s", undecoded[0].String(), path)
	}

	take := func(key string) bool {
		return meta.IsDefined(key) && !changed(key)
	}
	if take("factory") {
		c.Factory = file.Factory
	}
	if take("caller") {
		c.Caller = file.Caller
	}
	if take("codehash") {
		c.Codehash = file.Codehash
	}
	if take("bytecode") {
		c.Bytecode = file.Bytecode
	}
	if take("bytecode-file") {
		c.BytecodeFile = file.BytecodeFile
	}
	if take("worksize") {
		c.Worksize = file.Worksize
	}
	if take("pattern") {
		c.Pattern = file.Pattern
	}
	if take("backend") {
		c.Backend = file.Backend
	}
	if take("platform") {
		c.Platform = file.Platform
	}
	if take("device") {
		c.Device = file.Device
	}
	if take("workers") {
		c.Workers = file.Workers
	}
	if take("batch-size") {
		c.BatchSize = file.BatchSize
	}
	if take("seed") {
		c.Seed = file.Seed
	}
	if take("stop-on-found") {
		c.StopOnFound = file.StopOnFound
	}
	if take("debuglevel") {
		c.DebugLevel = file.DebugLevel
	}
	if take("log-file") {
		c.LogFile = file.LogFile
	}
	if take("log-interval") {
		c.LogInterval = file.LogInterval
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Caller == "" {
		return ErrNoCallerSpecified
	}
	if c.Codehash == "" && c.Bytecode == "" && c.BytecodeFile == "" {
		return ErrNoCodehashSpecified
	}
	switch c.Backend {
	case BackendGPU, BackendCPU, BackendEmulated:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.Worksize == 0 {
		return ErrZeroWorksize
	}
	if c.Platform < 0 || c.Device < 0 {
		return fmt.Errorf("%w: platform %d, device %d", ErrInvalidDevice, c.Platform, c.Device)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LogInterval <= 0 {
		c.LogInterval = DefaultLogInterval
	}
	return nil
}

// Raw returns the search fields in textual form, deriving the codehash from
// the init code when no codehash was given.
func (c *Config) Raw() (types.RawConfig, error) {
	codehash := c.Codehash
	if codehash == "" {
		initcode, err := c.GetBytecode()
		if err != nil {
			return types.RawConfig{}, err
		}
		codehash = crypto.Keccak256(initcode).Hex()
	}
	return types.RawConfig{
		Factory:  c.Factory,
		Caller:   c.Caller,
		Codehash: codehash,
		Worksize: c.Worksize,
		Pattern:  c.Pattern,
	}, nil
}

// GetBytecode returns the contract init code to hash
func (c *Config) GetBytecode() ([]byte, error) {
	if c.BytecodeFile != "" {
		return readBytecodeFromFile(c.BytecodeFile)
	}
	if c.Bytecode != "" {
		bytes, err := hex.DecodeString(strip0x(c.Bytecode))
		if err != nil {
			return nil, fmt.Errorf("invalid bytecode: %w", err)
		}
		return bytes, nil
	}
	return nil, ErrNoCodehashSpecified
}

// readBytecodeFromFile reads hex encoded init code from a file
func readBytecodeFromFile(filename string) ([]byte, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	code := strip0x(strings.TrimSpace(string(content)))

	// Ensure even length by padding with 0 if necessary
	if len(code)%2 != 0 {
		code = code + "0"
	}

	bytes, err := hex.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode in %s: %w", filename, err)
	}
	return bytes, nil
}
