package conf

// App-specific configuration structs & data.
// Must live in a package of its own so other packages within the app can depend on it without
// causing a circular dependency.

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var AppName = "Shutter"

var BuildTimestamp string

var Config AppConfig

type AppConfig struct {
	// Artifacts are written here; defaults to the directory containing `shutter.yml`.
	OutputDir string `yaml:"output-dir"`
	Browser   struct {
		ExecPath    string `yaml:"exec-path"`
		Download    *bool  `yaml:"download"`
		DownloadDir string `yaml:"download-dir"`
	} `yaml:"browser"`
	Capture struct {
		Scroll struct {
			Step     int           `yaml:"step"`
			Interval time.Duration `yaml:"interval"`
			MaxSteps int           `yaml:"max-steps"`
		} `yaml:"scroll"`
		NetworkIdle struct {
			Connections *int          `yaml:"connections"`
			Window      time.Duration `yaml:"window"`
		} `yaml:"network-idle"`
	} `yaml:"capture"`
	Schedule struct {
		Jobs []Job `yaml:"jobs"`
	} `yaml:"schedule"`
	Debug bool `yaml:"debug"`
}

// Job is one recurring capture; `{timestamp}` in Args is expanded each time it fires.
type Job struct {
	Name     string   `yaml:"name"`
	Cron     string   `yaml:"cron"`
	Timezone string   `yaml:"timezone"`
	Args     []string `yaml:"args"`
}

var DefaultJob = Job{
	Name:     "after-login",
	Cron:     "0 12 * * *",
	Timezone: "Asia/Shanghai",
	Args:     []string{"http://127.0.0.1:3333", "--png", "--out=after-login-{timestamp}.png"},
}

// ReadConfig reads & parses configYmlFile. A file that does not exist is reported with an
// error wrapping [os.ErrNotExist], alongside a config populated with defaults.
func ReadConfig(configYmlFile string) (AppConfig, error) {
	if BuildTimestamp == "" {
		BuildTimestamp = time.Now().Local().Format("2006-01-02 15:04:05")
	}

	c := &AppConfig{}
	configYmlPath, err := filepath.Abs(configYmlFile)
	if err != nil {
		setDefaults(c, configYmlFile)
		return *c, fmt.Errorf("Failed to get path to config file: %w", err)
	}

	buf, err := os.ReadFile(configYmlPath)
	if err != nil {
		setDefaults(c, configYmlPath)
		return *c, fmt.Errorf("Failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		setDefaults(c, configYmlPath)
		return *c, fmt.Errorf("Failed to parse config: %w", err)
	}

	setDefaults(c, configYmlPath)
	return *c, nil
}

func setDefaults(c *AppConfig, configYmlPath string) {
	if c.OutputDir == "" {
		c.OutputDir = filepath.Dir(configYmlPath)
	} else if !filepath.IsAbs(c.OutputDir) {
		// Relative output directories are relative to the config file, not the working directory.
		c.OutputDir = filepath.Join(filepath.Dir(configYmlPath), c.OutputDir)
	}

	// Downloading a browser is enabled by default; disable it on hosts without network access.
	if c.Browser.Download == nil {
		enabled := true
		c.Browser.Download = &enabled
	}

	if c.Capture.Scroll.Step <= 0 {
		c.Capture.Scroll.Step = 400
	}
	if c.Capture.Scroll.Interval <= 0 {
		c.Capture.Scroll.Interval = 50 * time.Millisecond
	}
	if c.Capture.Scroll.MaxSteps == 0 {
		c.Capture.Scroll.MaxSteps = 2000
	}
	if c.Capture.NetworkIdle.Connections == nil {
		connections := 2
		c.Capture.NetworkIdle.Connections = &connections
	}
	if c.Capture.NetworkIdle.Window <= 0 {
		c.Capture.NetworkIdle.Window = 500 * time.Millisecond
	}

	if len(c.Schedule.Jobs) == 0 {
		c.Schedule.Jobs = []Job{DefaultJob}
	}
	for i := range c.Schedule.Jobs {
		if c.Schedule.Jobs[i].Timezone == "" {
			c.Schedule.Jobs[i].Timezone = DefaultJob.Timezone
		}
	}
}

// Print logs the effective config at DEBUG, & warns about settings worth knowing about.
func (c AppConfig) Print() {
	json, _ := json.MarshalIndent(c, "", "\t")
	slog.Debug("effective config\n" + string(json))
	if c.Debug {
		slog.Warn("Debug mode is enabled")
	}
	if !*c.Browser.Download {
		slog.Warn("Browser download disabled; a locally-installed browser is required")
	}
	if c.Capture.Scroll.MaxSteps < 0 {
		slog.Warn("Scroll step limit disabled; pages that grow endlessly will never finish capturing")
	}
}
