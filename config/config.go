package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd"
	"github.com/brickingsoft/ringd/pkg/process"
	"github.com/brickingsoft/ringd/pkg/ring"
	"github.com/joeycumines/logiface"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrConfig = errors.Define("config: invalid configuration")

const EnvPrefix = "RINGD_"

type Config struct {
	Address        string `yaml:"address"`
	Port           int    `yaml:"port"`
	Entries        uint32 `yaml:"entries"`
	MaxConnections int    `yaml:"max-connections"`
	BufferSize     int    `yaml:"buffer-size"`
	Backlog        int    `yaml:"backlog"` // <= 0 uses somaxconn.
	Mode           string `yaml:"mode"`

	Response struct {
		ContentType string `yaml:"content-type"`
		Body        string `yaml:"body"`
		File        string `yaml:"file"` // Raw response bytes, sent as-is.
	} `yaml:"response"`

	Ring struct {
		Backend          string        `yaml:"backend"`
		Multishot        bool          `yaml:"multishot"`
		RegisterListener bool          `yaml:"register-listener"`
		RegisterRingFd   bool          `yaml:"register-ring-fd"`
		SQPoll           bool          `yaml:"sqpoll"`
		SQThreadIdle     time.Duration `yaml:"sqpoll-idle"`
	} `yaml:"ring"`

	Workers     int    `yaml:"workers"`
	PinCPU      bool   `yaml:"pin-cpu"`
	Priority    string `yaml:"priority"`
	ErrorPolicy string `yaml:"error-policy"`
	LogLevel    string `yaml:"log-level"`
}

func Default() Config {
	var c Config
	c.Address = ringd.DefaultAddress
	c.Port = ringd.DefaultPort
	c.Entries = ringd.DefaultEntries
	c.MaxConnections = ringd.DefaultMaxConnections
	c.BufferSize = ringd.DefaultBufferSize
	c.Mode = string(ringd.ModeStatic)
	c.Response.ContentType = ringd.DefaultContentType
	c.Response.Body = ringd.DefaultBody
	c.Ring.Multishot = true
	c.Ring.RegisterListener = true
	c.Workers = 1
	c.Priority = process.NORM.String()
	c.ErrorPolicy = string(ringd.PolicyIsolate)
	c.LogLevel = "info"
	return c
}

// Load
// 默认值 -> YAML 文件（path 为空时跳过）-> .env 文件 -> RINGD_* 环境变量。
// .env 不覆盖已存在的环境变量，缺失时忽略。
func Load(path string, envFiles ...string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, invalid("file", path, err)
		}
		if err = yaml.Unmarshal(b, &c); err != nil {
			return c, invalid("file", path, err)
		}
	}
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return c, invalid("dotenv", strings.Join(envFiles, ","), err)
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return c, err
	}
	return c, nil
}

func invalid(field string, value string, cause error) error {
	if cause == nil {
		return errors.From(
			ErrConfig,
			errors.WithMeta("field", field),
			errors.WithMeta("value", value),
		)
	}
	return errors.From(
		ErrConfig,
		errors.WithMeta("field", field),
		errors.WithMeta("value", value),
		errors.WithWrap(cause),
	)
}

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

var envVars = []envVar{
	{"ADDRESS", func(c *Config, v string) error { c.Address = v; return nil }},
	{"PORT", func(c *Config, v string) error { return parseInt(v, &c.Port) }},
	{"ENTRIES", func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		c.Entries = uint32(n)
		return err
	}},
	{"MAX_CONNECTIONS", func(c *Config, v string) error { return parseInt(v, &c.MaxConnections) }},
	{"BUFFER_SIZE", func(c *Config, v string) error { return parseInt(v, &c.BufferSize) }},
	{"BACKLOG", func(c *Config, v string) error { return parseInt(v, &c.Backlog) }},
	{"MODE", func(c *Config, v string) error { c.Mode = v; return nil }},
	{"RESPONSE_CONTENT_TYPE", func(c *Config, v string) error { c.Response.ContentType = v; return nil }},
	{"RESPONSE_BODY", func(c *Config, v string) error { c.Response.Body = v; return nil }},
	{"RESPONSE_FILE", func(c *Config, v string) error { c.Response.File = v; return nil }},
	{"BACKEND", func(c *Config, v string) error { c.Ring.Backend = v; return nil }},
	{"MULTISHOT", func(c *Config, v string) error { return parseBool(v, &c.Ring.Multishot) }},
	{"REGISTER_LISTENER", func(c *Config, v string) error { return parseBool(v, &c.Ring.RegisterListener) }},
	{"REGISTER_RING_FD", func(c *Config, v string) error { return parseBool(v, &c.Ring.RegisterRingFd) }},
	{"SQPOLL", func(c *Config, v string) error { return parseBool(v, &c.Ring.SQPoll) }},
	{"SQPOLL_IDLE", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.Ring.SQThreadIdle = d
		return err
	}},
	{"WORKERS", func(c *Config, v string) error { return parseInt(v, &c.Workers) }},
	{"PIN_CPU", func(c *Config, v string) error { return parseBool(v, &c.PinCPU) }},
	{"PRIORITY", func(c *Config, v string) error { c.Priority = v; return nil }},
	{"ERROR_POLICY", func(c *Config, v string) error { c.ErrorPolicy = v; return nil }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.LogLevel = v; return nil }},
}

func parseInt(v string, dst *int) (err error) {
	*dst, err = strconv.Atoi(v)
	return
}

func parseBool(v string, dst *bool) (err error) {
	*dst, err = strconv.ParseBool(v)
	return
}

// ApplyEnv
// 用 RINGD_* 变量覆盖配置，lookup 一般为 os.LookupEnv。
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, e := range envVars {
		name := EnvPrefix + e.name
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := e.set(c, strings.TrimSpace(v)); err != nil {
			return invalid(name, v, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return invalid("address", "", nil)
	}
	if c.Port < 0 || c.Port > 65535 {
		return invalid("port", strconv.Itoa(c.Port), nil)
	}
	if c.Entries == 0 {
		return invalid("entries", "0", nil)
	}
	if c.MaxConnections < 1 {
		return invalid("max-connections", strconv.Itoa(c.MaxConnections), nil)
	}
	if c.BufferSize < 1 {
		return invalid("buffer-size", strconv.Itoa(c.BufferSize), nil)
	}
	switch ringd.Mode(c.Mode) {
	case ringd.ModeStatic, ringd.ModeEcho:
	default:
		return invalid("mode", c.Mode, nil)
	}
	switch ringd.ErrorPolicy(c.ErrorPolicy) {
	case ringd.PolicyIsolate, ringd.PolicyFailFast:
	default:
		return invalid("error-policy", c.ErrorPolicy, nil)
	}
	if c.Workers < 1 {
		return invalid("workers", strconv.Itoa(c.Workers), nil)
	}
	if !ring.ValidBackend(c.Ring.Backend) {
		return invalid("ring.backend", c.Ring.Backend, nil)
	}
	if c.Ring.SQThreadIdle < 0 {
		return invalid("ring.sqpoll-idle", c.Ring.SQThreadIdle.String(), nil)
	}
	if _, ok := process.ParsePriority(c.Priority); !ok {
		return invalid("priority", c.Priority, nil)
	}
	if _, ok := ringd.ParseLevel(c.LogLevel); !ok {
		return invalid("log-level", c.LogLevel, nil)
	}
	return nil
}

// ResponseBytes
// response.file 存在时原样读取，否则按 content-type 与 body 生成。
func (c *Config) ResponseBytes() ([]byte, error) {
	if c.Response.File != "" {
		b, err := os.ReadFile(c.Response.File)
		if err != nil {
			return nil, invalid("response.file", c.Response.File, err)
		}
		if len(b) == 0 {
			return nil, invalid("response.file", c.Response.File, nil)
		}
		return b, nil
	}
	return ringd.BuildResponse(c.Response.ContentType, []byte(c.Response.Body)), nil
}

func (c *Config) Level() logiface.Level {
	level, _ := ringd.ParseLevel(c.LogLevel)
	return level
}

// Options
// 校验并转换为 ringd.Option。
func (c *Config) Options(logger *logiface.Logger[logiface.Event]) ([]ringd.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	response, err := c.ResponseBytes()
	if err != nil {
		return nil, err
	}
	priority, _ := process.ParsePriority(c.Priority)
	opts := []ringd.Option{
		ringd.WithAddress(c.Address),
		ringd.WithPort(c.Port),
		ringd.WithEntries(c.Entries),
		ringd.WithMaxConnections(c.MaxConnections),
		ringd.WithBufferSize(c.BufferSize),
		ringd.WithBacklog(c.Backlog),
		ringd.WithMode(ringd.Mode(c.Mode)),
		ringd.WithResponse(response),
		ringd.WithMultishotAccept(c.Ring.Multishot),
		ringd.WithRegisterListener(c.Ring.RegisterListener),
		ringd.WithRegisterRingFd(c.Ring.RegisterRingFd),
		ringd.WithBackend(c.Ring.Backend),
		ringd.WithWorkers(c.Workers),
		ringd.WithPinCPU(c.PinCPU),
		ringd.WithPriority(priority),
		ringd.WithErrorPolicy(ringd.ErrorPolicy(c.ErrorPolicy)),
		ringd.WithLogger(logger),
	}
	if c.Ring.SQPoll {
		opts = append(opts, ringd.WithSQPoll(c.Ring.SQThreadIdle))
	}
	return opts, nil
}
