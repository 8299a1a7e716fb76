package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDataName       = "tasks.json"
	DefaultDBName         = "dayhelper.db"
	DefaultLogName        = "dayhelper.log"
	DefaultPollSchedule   = "* * * * *"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	envConfigPath = "DAYHELPER_CONFIG"
)

type Keymap struct {
	Quit      string `toml:"quit"`
	Up        string `toml:"up"`
	Down      string `toml:"down"`
	PrevDay   string `toml:"prev_day"`
	NextDay   string `toml:"next_day"`
	PrevWeek  string `toml:"prev_week"`
	NextWeek  string `toml:"next_week"`
	PrevMonth string `toml:"prev_month"`
	NextMonth string `toml:"next_month"`
	Today     string `toml:"today"`
	AddTask   string `toml:"add_task"`
	Delete    string `toml:"delete"`
	Reminder  string `toml:"reminder"`
	Note      string `toml:"note"`
	Confirm   string `toml:"confirm"`
	Cancel    string `toml:"cancel"`
	NextField string `toml:"next_field"`
}

type Config struct {
	DataPath     string `toml:"data_path"`
	Backend      string `toml:"backend"`
	DBPath       string `toml:"db_path"`
	PollSchedule string `toml:"poll_schedule"`
	WeekStart    string `toml:"week_start"`
	LogPath      string `toml:"log_path"`
	LogLevel     string `toml:"log_level"`
	Keys         Keymap `toml:"keys"`
}

// ResolveConfigPath picks the config file: $DAYHELPER_CONFIG when set,
// otherwise config.toml in the working directory.
func ResolveConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	return DefaultConfigFileName
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills empty or unknown values with defaults so older or
// hand-trimmed files keep working.
func (c *Config) Normalize() {
	def := defaultConfig()
	if c.DataPath == "" {
		c.DataPath = def.DataPath
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	default:
		c.Backend = BackendJSON
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if strings.TrimSpace(c.PollSchedule) == "" {
		c.PollSchedule = def.PollSchedule
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if c.LogPath == "" {
		c.LogPath = def.LogPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	c.Keys.fill(def.Keys)
}

func (k *Keymap) fill(def Keymap) {
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	set(&k.Quit, def.Quit)
	set(&k.Up, def.Up)
	set(&k.Down, def.Down)
	set(&k.PrevDay, def.PrevDay)
	set(&k.NextDay, def.NextDay)
	set(&k.PrevWeek, def.PrevWeek)
	set(&k.NextWeek, def.NextWeek)
	set(&k.PrevMonth, def.PrevMonth)
	set(&k.NextMonth, def.NextMonth)
	set(&k.Today, def.Today)
	set(&k.AddTask, def.AddTask)
	set(&k.Delete, def.Delete)
	set(&k.Reminder, def.Reminder)
	set(&k.Note, def.Note)
	set(&k.Confirm, def.Confirm)
	set(&k.Cancel, def.Cancel)
	set(&k.NextField, def.NextField)
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DataPath:     DefaultDataName,
		Backend:      BackendJSON,
		DBPath:       DefaultDBName,
		PollSchedule: DefaultPollSchedule,
		WeekStart:    "monday",
		LogPath:      DefaultLogName,
		LogLevel:     "info",
		Keys: Keymap{
			Quit:      "q",
			Up:        "k",
			Down:      "j",
			PrevDay:   "h",
			NextDay:   "l",
			PrevWeek:  "[",
			NextWeek:  "]",
			PrevMonth: "{",
			NextMonth: "}",
			Today:     "t",
			AddTask:   "a",
			Delete:    "d",
			Reminder:  "r",
			Note:      "n",
			Confirm:   "enter",
			Cancel:    "esc",
			NextField: "tab",
		},
	}
}
