package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layout"
)

type Config struct {
	Device        DeviceConfig     `yaml:"device"`
	Timing        TimingConfig     `yaml:"timing"`
	Run           RunConfig        `yaml:"run"`
	Layout        LayoutConfig     `yaml:"layout"`
	Layers        []Layer          `yaml:"layers"`
	DualRole      []DualRoleKey    `yaml:"dual_role,omitempty"`
	Chords        ChordConfig      `yaml:"chords,omitempty"`
	ShiftKeys     []ShiftKey       `yaml:"shift_keys,omitempty"`
	AltRepeat     AltRepeatConfig  `yaml:"alt_repeat,omitempty"`
	Abbreviations []string         `yaml:"abbreviations,omitempty"`
	Ergonomics    ErgonomicsConfig `yaml:"ergonomics,omitempty"`
}

type DeviceConfig struct {
	VendorID       uint16 `yaml:"vendor_id"`
	ProductID      uint16 `yaml:"product_id"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

type TimingConfig struct {
	TapDelayMs            int `yaml:"tap_delay_ms"`
	ChordTimeoutMs        int `yaml:"chord_timeout_ms"`
	SentenceCaseTimeoutMs int `yaml:"sentence_case_timeout_ms"`
	SelectWordTimeoutMs   int `yaml:"select_word_timeout_ms"`
	CapsWordTimeoutMs     int `yaml:"caps_word_timeout_ms"`
	LayerLockTimeoutMs    int `yaml:"layer_lock_timeout_ms"`
}

type RunConfig struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	WorkingDir string   `yaml:"working_dir,omitempty"`
}

type LayoutConfig struct {
	Rows       uint8 `yaml:"rows"`
	Cols       uint8 `yaml:"cols"`
	Split      bool  `yaml:"split"`
	MacHotkeys bool  `yaml:"mac_hotkeys"`
}

// Layer is one keymap layer. Keys is Rows x Cols key names in row-major
// order; "_" is transparent. Cells may also name a dual_role entry.
type Layer struct {
	Name string     `yaml:"name,omitempty"`
	Keys [][]string `yaml:"keys"`
}

// DualRoleKey defines a tap-hold key. Exactly one of HoldMods and HoldLayer
// must be set. A zero timeout skips chord resolution and holds immediately.
type DualRoleKey struct {
	Name      string `yaml:"name"`
	Tap       string `yaml:"tap"`
	HoldMods  string `yaml:"hold_mods,omitempty"`
	HoldLayer *int   `yaml:"hold_layer,omitempty"`
	TimeoutMs *int   `yaml:"timeout_ms,omitempty"`
}

type ChordConfig struct {
	ForceHold      [][2]string `yaml:"force_hold,omitempty"`
	ForceTap       [][2]string `yaml:"force_tap,omitempty"`
	AlwaysHoldRows []uint8     `yaml:"always_hold_rows,omitempty"`
}

// ShiftKey overrides what a key sends while shift is held, e.g. shifted
// comma sending "shift+1" for an exclamation mark.
type ShiftKey struct {
	Key   string `yaml:"key"`
	Sends string `yaml:"sends"`
}

type AltRepeatConfig struct {
	Pairs    [][2]string        `yaml:"pairs,omitempty"`
	Mappings []AltRepeatMapping `yaml:"mappings,omitempty"`
}

type AltRepeatMapping struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type ErgonomicsConfig struct {
	SpaceRepeatShift bool `yaml:"space_repeat_shift"`
	VowelPattern     bool `yaml:"vowel_pattern"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Device.VendorID == 0 {
		return fmt.Errorf("device.vendor_id is required")
	}
	if c.Device.ProductID == 0 {
		return fmt.Errorf("device.product_id is required")
	}
	if c.Run.Command == "" {
		return fmt.Errorf("run.command is required")
	}
	if c.Layout.Rows == 0 || c.Layout.Cols == 0 {
		return fmt.Errorf("layout.rows and layout.cols are required")
	}
	if len(c.Layers) == 0 {
		return fmt.Errorf("at least one layer is required")
	}
	if len(c.Layers) > keycode.MaxLayers {
		return fmt.Errorf("too many layers: %d (max %d)", len(c.Layers), keycode.MaxLayers)
	}

	for i, layer := range c.Layers {
		if len(layer.Keys) != int(c.Layout.Rows) {
			return fmt.Errorf("layer %d has %d rows, want %d", i, len(layer.Keys), c.Layout.Rows)
		}
		for r, row := range layer.Keys {
			if len(row) != int(c.Layout.Cols) {
				return fmt.Errorf("layer %d row %d has %d keys, want %d", i, r, len(row), c.Layout.Cols)
			}
		}
	}

	seen := make(map[string]bool)
	for i, d := range c.DualRole {
		if d.Name == "" {
			return fmt.Errorf("dual_role %d: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate dual_role name: %s", d.Name)
		}
		seen[d.Name] = true
		if d.Tap == "" {
			return fmt.Errorf("dual_role %s: tap is required", d.Name)
		}
		if (d.HoldMods == "") == (d.HoldLayer == nil) {
			return fmt.Errorf("dual_role %s: exactly one of hold_mods and hold_layer is required", d.Name)
		}
		if d.HoldLayer != nil && (*d.HoldLayer <= 0 || *d.HoldLayer >= len(c.Layers)) {
			return fmt.Errorf("dual_role %s: hold_layer %d out of range", d.Name, *d.HoldLayer)
		}
	}

	for _, row := range c.Chords.AlwaysHoldRows {
		if row >= c.Layout.Rows {
			return fmt.Errorf("chords.always_hold_rows: row %d out of range", row)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Device.PollIntervalMs == 0 {
		c.Device.PollIntervalMs = 1
	}
	if c.Timing.TapDelayMs == 0 {
		c.Timing.TapDelayMs = 5
	}
	if c.Timing.ChordTimeoutMs == 0 {
		c.Timing.ChordTimeoutMs = 800
	}
	if c.Timing.SentenceCaseTimeoutMs == 0 {
		c.Timing.SentenceCaseTimeoutMs = 2000
	}
	if c.Timing.CapsWordTimeoutMs == 0 {
		c.Timing.CapsWordTimeoutMs = 5000
	}
	if c.Timing.LayerLockTimeoutMs == 0 {
		c.Timing.LayerLockTimeoutMs = 60000
	}
}

// Build compiles the validated configuration into the engine's layout
// tables, parsing every key name.
func (c *Config) Build() (*layout.Layout, error) {
	lay := layout.New(c.Layout.Rows, c.Layout.Cols, c.Layout.Split)
	lay.MacHotkeys = c.Layout.MacHotkeys

	// Dual-role entries are registered first so layer cells can reference
	// them by name.
	dualByName := make(map[string]keycode.Keycode, len(c.DualRole))
	for _, d := range c.DualRole {
		tap, err := keycode.Parse(d.Tap)
		if err != nil {
			return nil, fmt.Errorf("dual_role %s: %w", d.Name, err)
		}
		def := layout.DualRole{Tap: tap, HoldLayer: -1, Timeout: uint16(c.Timing.ChordTimeoutMs)}
		if d.HoldMods != "" {
			mods, err := keycode.ParseMods(d.HoldMods)
			if err != nil {
				return nil, fmt.Errorf("dual_role %s: %w", d.Name, err)
			}
			def.HoldMods = mods
		} else {
			def.HoldLayer = *d.HoldLayer
		}
		if d.TimeoutMs != nil {
			def.Timeout = uint16(*d.TimeoutMs)
		}
		kc, err := lay.AddDualRole(def)
		if err != nil {
			return nil, fmt.Errorf("dual_role %s: %w", d.Name, err)
		}
		dualByName[d.Name] = kc
	}

	parseCell := func(name string) (keycode.Keycode, error) {
		if kc, ok := dualByName[name]; ok {
			return kc, nil
		}
		return keycode.Parse(name)
	}

	for i, layer := range c.Layers {
		keys := make([]keycode.Keycode, 0, int(c.Layout.Rows)*int(c.Layout.Cols))
		for r, row := range layer.Keys {
			for col, name := range row {
				kc, err := parseCell(name)
				if err != nil {
					return nil, fmt.Errorf("layer %d (%s) row %d col %d: %w", i, layer.Name, r, col, err)
				}
				keys = append(keys, kc)
			}
		}
		if err := lay.AddLayer(keys); err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, layer.Name, err)
		}
	}

	for _, pair := range c.Chords.ForceHold {
		a, b, err := parsePair(parseCell, pair)
		if err != nil {
			return nil, fmt.Errorf("chords.force_hold: %w", err)
		}
		lay.ForceHold(a, b)
	}
	for _, pair := range c.Chords.ForceTap {
		a, b, err := parsePair(parseCell, pair)
		if err != nil {
			return nil, fmt.Errorf("chords.force_tap: %w", err)
		}
		lay.ForceTap(a, b)
	}
	for _, row := range c.Chords.AlwaysHoldRows {
		lay.AlwaysHoldRow(row)
	}

	for _, s := range c.ShiftKeys {
		base, err := keycode.Parse(s.Key)
		if err != nil {
			return nil, fmt.Errorf("shift_keys %s: %w", s.Key, err)
		}
		sends, err := keycode.Parse(s.Sends)
		if err != nil {
			return nil, fmt.Errorf("shift_keys %s: %w", s.Key, err)
		}
		lay.AddShiftOverride(base, sends)
	}

	for _, pair := range c.AltRepeat.Pairs {
		a, b, err := parsePair(keycode.Parse, pair)
		if err != nil {
			return nil, fmt.Errorf("alt_repeat.pairs: %w", err)
		}
		lay.AddAltRepeatPair(a, b)
	}
	for _, m := range c.AltRepeat.Mappings {
		from, err := keycode.Parse(m.From)
		if err != nil {
			return nil, fmt.Errorf("alt_repeat.mappings %s: %w", m.From, err)
		}
		to, err := keycode.Parse(m.To)
		if err != nil {
			return nil, fmt.Errorf("alt_repeat.mappings %s: %w", m.From, err)
		}
		lay.AddAltRepeatMapping(from, to)
	}

	for _, word := range c.Abbreviations {
		if err := lay.AddAbbreviation(word); err != nil {
			return nil, err
		}
	}

	return lay, nil
}

func parsePair(parse func(string) (keycode.Keycode, error), pair [2]string) (keycode.Keycode, keycode.Keycode, error) {
	a, err := parse(pair[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := parse(pair[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// UpdateDeviceIDs updates the vendor_id and product_id in a config file
// while preserving the rest of the file structure and comments
func UpdateDeviceIDs(path string, vendorID, productID uint16) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	content := string(data)

	// Update vendor_id (YAML format: vendor_id: 0x1234 or vendor_id: 1234)
	vendorRegex := regexp.MustCompile(`(?m)^(\s*vendor_id:\s*)(?:0x[0-9A-Fa-f]+|\d+)`)
	content = vendorRegex.ReplaceAllString(content, fmt.Sprintf("${1}0x%04X", vendorID))

	// Update product_id
	productRegex := regexp.MustCompile(`(?m)^(\s*product_id:\s*)(?:0x[0-9A-Fa-f]+|\d+)`)
	content = productRegex.ReplaceAllString(content, fmt.Sprintf("${1}0x%04X", productID))

	// Write back
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UpdateRunCommand rewrites the run command of an existing config file in
// place, preserving comments and everything else.
func UpdateRunCommand(path, command string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	commandRegex := regexp.MustCompile(`(?m)^(\s*command:\s*).*$`)
	// Dollar signs in the command would otherwise be expanded as group
	// references by ReplaceAllString.
	repl := "${1}" + strings.ReplaceAll(fmt.Sprintf("%q", command), "$", "$$")
	content := commandRegex.ReplaceAllString(string(data), repl)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a new config file with default values and the
// specified device. The sample keymap is a plain 2x4 strip so the engine
// runs out of the box; real keyboards replace layout and layers entirely.
func CreateDefaultConfig(path string, vendorID, productID uint16) error {
	content := fmt.Sprintf(`# Keyweave Configuration

device:
  vendor_id: 0x%04X
  product_id: 0x%04X
  poll_interval_ms: 1

timing:
  tap_delay_ms: 5
  chord_timeout_ms: 800
  sentence_case_timeout_ms: 2000
  caps_word_timeout_ms: 5000
  layer_lock_timeout_ms: 60000

run:
  command: "your-app"
  args: []

layout:
  rows: 2
  cols: 4
  split: true

dual_role:
  - name: sft_f
    tap: f
    hold_mods: lshift

layers:
  - name: base
    keys:
      - [a, s, d, sft_f]
      - [repeat, altrepeat, space, selword]

abbreviations: [vs, etc]

ergonomics:
  space_repeat_shift: false
  vowel_pattern: false
`, vendorID, productID)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// Exists checks if a config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
