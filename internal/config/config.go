// Package config loads the CLI's optional settings file. It has no
// bearing on W5100/PIA register state, which per the card spec is
// never persisted.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"
)

// Config holds defaults the CLI falls back to when flags are absent.
type Config struct {
	NetSlot       int      `toml:"net_slot"`
	MouseSlot     int      `toml:"mouse_slot"`
	MouseROMPaths []string `toml:"mouse_rom_paths"`
	Debug         bool     `toml:"debug"`
}

const filename = "config.toml"

// Dir returns (and creates) the module's config directory.
var Dir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("bobbin")
	_ = configdir.MakePath(dir)
	return dir
})

// Default returns the built-in configuration used when no config.toml
// is present.
func Default() Config {
	return Config{
		NetSlot:   3,
		MouseSlot: 4,
		MouseROMPaths: []string{
			"roms/cards/mouse.rom",
			"../roms/cards/mouse.rom",
		},
		Debug: false,
	}
}

// Load reads config.toml from the module's config directory, falling
// back to Default() if it is absent or malformed.
func Load() Config {
	cfg := Default()
	_, err := toml.DecodeFile(filepath.Join(Dir(), filename), &cfg)
	if err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to config.toml in the module's config directory.
func Save(cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(Dir(), filename), buf, 0644)
}
