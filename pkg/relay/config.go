// Copyright 2024-2026 Aiku AI

package relay

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config holds the relay configuration.
type Config struct {
	// Token is the Telegram bot token. The TELEGRAM_BOT_TOKEN environment
	// variable takes precedence when set.
	Token string `yaml:"token"`
	// APIEndpoint overrides the Telegram Bot API endpoint. Empty means
	// the official API.
	APIEndpoint string `yaml:"api_endpoint"`
	// Operators is the fixed set of operator chat IDs. Membership both
	// routes inbound-vs-reply and gates the introspection command.
	Operators []int64 `yaml:"operators"`
	// DatabasePath is the SQLite correlation database location.
	DatabasePath string `yaml:"database_path"`
	// AdminAPIAddr is the listen address for the admin HTTP server that
	// serves /metrics and /healthz. Defaults to ":29330".
	AdminAPIAddr string `yaml:"admin_api_addr"`
	// HeaderTemplate renders the context line prefixed to copies
	// forwarded to operators.
	HeaderTemplate string `yaml:"header_template"`
	// PollTimeout is the update long-poll timeout in seconds.
	PollTimeout int `yaml:"poll_timeout"`

	headerTemplate *template.Template `yaml:"-"`
	operatorSet    map[int64]struct{} `yaml:"-"`
}

// HeaderParams holds the parameters for rendering the header template.
type HeaderParams struct {
	Name string
	ID   int64
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess parses the header template, applies defaults, and builds the
// operator membership set. Must be called after unmarshalling and before
// the config is used.
func (c *Config) PostProcess() error {
	if c.HeaderTemplate == "" {
		c.HeaderTemplate = "{{ .Name }} ({{ .ID }}):"
	}
	if c.AdminAPIAddr == "" {
		c.AdminAPIAddr = ":29330"
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 30
	}
	if env := os.Getenv("TELEGRAM_BOT_TOKEN"); env != "" {
		c.Token = env
	}

	var err error
	c.headerTemplate, err = template.New("header").Parse(c.HeaderTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse header template: %w", err)
	}

	c.operatorSet = make(map[int64]struct{}, len(c.Operators))
	for _, id := range c.Operators {
		c.operatorSet[id] = struct{}{}
	}
	return nil
}

// LoadConfig reads and post-processes a config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsOperator reports whether the chat ID belongs to the configured operator
// set.
func (c *Config) IsOperator(id int64) bool {
	_, ok := c.operatorSet[id]
	return ok
}

// FormatHeader renders the forwarded-message header for a sender. Falls
// back to the bare chat ID if the template fails to execute.
func (c *Config) FormatHeader(params HeaderParams) string {
	if c.headerTemplate == nil {
		return FormatChatID(params.ID)
	}
	var buf strings.Builder
	if err := c.headerTemplate.Execute(&buf, params); err != nil {
		return FormatChatID(params.ID)
	}
	return buf.String()
}
