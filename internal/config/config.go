package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"stylelinks/internal/enhancer"
)

// DerivativeRel is the relation type every derivative link carries by default.
const DerivativeRel = "https://stylelinks.dev/relation-types/#derivative"

// Config models stylelinks.yml.
type Config struct {
	Server struct {
		BasePath      string `yaml:"base_path" json:"base_path"`
		PublicBaseURL string `yaml:"public_base_url" json:"public_base_url"`
	} `yaml:"server" json:"server"`
	Catalog struct {
		DefaultRelations []string `yaml:"default_relations" json:"default_relations"`
		TokenKey         string   `yaml:"token_key" json:"-"`
	} `yaml:"catalog" json:"catalog"`
	Styles    []StyleConfig    `yaml:"styles" json:"styles"`
	Consumers []ConsumerConfig `yaml:"consumers" json:"consumers"`
	Fields    []FieldConfig    `yaml:"fields" json:"fields"`
	RBAC      struct {
		Roles       map[string]RBACRole `yaml:"roles" json:"roles"`
		DefaultRole string              `yaml:"default_role" json:"default_role"`
	} `yaml:"rbac" json:"rbac"`
	Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks,omitempty"`
}

// WebhookConfig posts matching events to URL, typically a CDN purge hook.
type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Events         []string `yaml:"events" json:"events,omitempty"`
	Secret         string   `yaml:"secret" json:"-"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled" json:"enabled,omitempty"`
}

type StyleConfig struct {
	ID        string   `yaml:"id" json:"id"`
	Label     string   `yaml:"label" json:"label"`
	Disabled  bool     `yaml:"disabled" json:"disabled,omitempty"`
	Relations []string `yaml:"relations" json:"relations,omitempty"`
}

type ConsumerConfig struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	Default     bool     `yaml:"default" json:"default,omitempty"`
	ImageStyles []string `yaml:"image_styles" json:"image_styles"`
}

// FieldConfig attaches an enhancer to a resource field.
type FieldConfig struct {
	Resource string            `yaml:"resource" json:"resource"`
	Field    string            `yaml:"field" json:"field"`
	Enhancer string            `yaml:"enhancer" json:"enhancer"`
	Settings enhancer.Settings `yaml:"settings" json:"settings"`
}

type RBACRole struct {
	Description string   `yaml:"description" json:"description"`
	Permissions []string `yaml:"permissions" json:"permissions"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.PublicBaseURL == "" {
		return fmt.Errorf("config.server.public_base_url is required")
	}
	styles := make(map[string]struct{}, len(c.Styles))
	for i, s := range c.Styles {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("config.styles[%d].id is required", i)
		}
		if _, dup := styles[s.ID]; dup {
			return fmt.Errorf("style %s defined twice", s.ID)
		}
		styles[s.ID] = struct{}{}
		for _, rel := range s.Relations {
			if rel == "" {
				return fmt.Errorf("style %s has empty relation", s.ID)
			}
		}
	}
	defaults := 0
	consumers := make(map[string]struct{}, len(c.Consumers))
	for i, cons := range c.Consumers {
		if strings.TrimSpace(cons.ID) == "" {
			return fmt.Errorf("config.consumers[%d].id is required", i)
		}
		if _, dup := consumers[cons.ID]; dup {
			return fmt.Errorf("consumer %s defined twice", cons.ID)
		}
		consumers[cons.ID] = struct{}{}
		if cons.Default {
			defaults++
		}
		for _, styleID := range cons.ImageStyles {
			if _, ok := styles[styleID]; !ok && len(styles) > 0 {
				return fmt.Errorf("consumer %s references unknown style %s", cons.ID, styleID)
			}
		}
	}
	if defaults > 1 {
		return fmt.Errorf("only one consumer may be the default")
	}
	for i, f := range c.Fields {
		if f.Resource == "" || f.Field == "" {
			return fmt.Errorf("config.fields[%d] requires resource and field", i)
		}
		if f.Enhancer != enhancer.ID {
			return fmt.Errorf("field %s.%s: unknown enhancer %q", f.Resource, f.Field, f.Enhancer)
		}
	}
	for i, h := range c.Webhooks {
		if strings.TrimSpace(h.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	if len(c.RBAC.Roles) > 0 {
		if _, ok := c.RBAC.Roles["admin"]; !ok {
			return fmt.Errorf("config.rbac.roles must include admin")
		}
		for roleID, role := range c.RBAC.Roles {
			for _, perm := range role.Permissions {
				if perm == "" {
					return fmt.Errorf("role %s has empty permission id", roleID)
				}
			}
		}
		if c.RBAC.DefaultRole != "" {
			if _, ok := c.RBAC.Roles[c.RBAC.DefaultRole]; !ok {
				return fmt.Errorf("config.rbac.default_role %s is not a role", c.RBAC.DefaultRole)
			}
		}
	}
	return nil
}

// Relations returns the catalog's default relation types.
func (c *Config) Relations() []string {
	if len(c.Catalog.DefaultRelations) == 0 {
		return []string{DerivativeRel}
	}
	return c.Catalog.DefaultRelations
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "stylelinks.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  base_path: /v0
  public_base_url: http://127.0.0.1:8080/files

catalog:
  default_relations:
    - https://stylelinks.dev/relation-types/#derivative

styles:
  - id: thumbnail
    label: Thumbnail (100x100)
  - id: medium
    label: Medium (220x220)
  - id: large
    label: Large (480x480)
  - id: wide
    label: Wide (1090)

consumers:
  - id: default
    label: Default consumer
    default: true
    image_styles: [thumbnail, medium, large]

fields:
  - resource: articles
    field: image
    enhancer: image_styles
    settings:
      styles:
        refine: false
        custom_selection: []

rbac:
  default_role: reader
  roles:
    admin:
      description: "Manages styles, consumers and field settings"
      permissions:
        - styles.read
        - styles.manage
        - consumers.read
        - consumers.manage
        - fields.read
        - fields.manage
        - files.read
        - files.create
        - files.view.any
        - files.delete
        - articles.read
        - articles.create
        - events.read
        - rbac.manage
    editor:
      description: "Uploads files and writes articles"
      permissions: [styles.read, files.read, files.create, articles.read, articles.create]
    reader:
      description: "Reads published content"
      permissions: [styles.read, files.read, articles.read]
`
