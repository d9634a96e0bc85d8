package config

import (
	"os"
	"time"

	"github.com/vuuvv/errors"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Address    string        `yaml:"address"`
	WriteWait  time.Duration `yaml:"write_wait"`
	SendBuffer int           `yaml:"send_buffer"`
}

// Compiler 外部编译器. Path 可以是绝对路径, 也可以是 PATH 中的命令名
type Compiler struct {
	Path    string        `yaml:"path"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type History struct {
	Size int `yaml:"size"`
}

type AppConfig struct {
	Server   Server   `yaml:"server"`
	Compiler Compiler `yaml:"compiler"`
	Log      Log      `yaml:"log"`
	History  History  `yaml:"history"`
}

func Default() *AppConfig {
	return &AppConfig{
		Server: Server{
			Address:    ":8080",
			WriteWait:  5 * time.Second,
			SendBuffer: 64,
		},
		Compiler: Compiler{
			Path:    "rplc",
			Timeout: 10 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
		History: History{
			Size: 20,
		},
	}
}

// Load 读取 yaml 配置文件, 文件中没有的项使用默认值. path 为空时直接返回默认配置
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	if err = Parse(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "load config file %s", path)
	}
	return cfg, nil
}

func Parse(data []byte, cfg *AppConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.WithStack(err)
	}
	return cfg.Validate()
}

func (c *AppConfig) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address is required")
	}
	if c.Server.SendBuffer <= 0 {
		return errors.Errorf("server.send_buffer must be positive, got %d", c.Server.SendBuffer)
	}
	if c.Server.WriteWait <= 0 {
		return errors.Errorf("server.write_wait must be positive, got %s", c.Server.WriteWait)
	}
	if c.Compiler.Path == "" {
		return errors.New("compiler.path is required")
	}
	if c.Compiler.Timeout <= 0 {
		return errors.Errorf("compiler.timeout must be positive, got %s", c.Compiler.Timeout)
	}
	if c.History.Size <= 0 {
		return errors.Errorf("history.size must be positive, got %d", c.History.Size)
	}
	return nil
}
