package configuration

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type MongoConfig struct {
	URI                string `yaml:"uri"`
	Database           string `yaml:"database"`
	MessagesCollection string `yaml:"messages_collection"`
	UsersCollection    string `yaml:"users_collection"`
}

type ServerConfig struct {
	AppAddr        string   `yaml:"app_addr"`
	SocketAddr     string   `yaml:"socket_addr"`
	SocketRoute    string   `yaml:"socket_route"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type AuthConfig struct {
	Secret string `yaml:"secret"`
}

type Config struct {
	Env string `yaml:"env"`

	// Storage selects the message store backend: "mongo" or "memory".
	Storage string       `yaml:"storage"`
	Mongo   MongoConfig  `yaml:"mongo"`
	Server  ServerConfig `yaml:"server"`
	Auth    AuthConfig   `yaml:"auth"`
}

// Load reads one or more comma-separated YAML files, later files
// overriding earlier ones (e.g. "-c common.yml,chat.yml").
func Load(pathList string) (*Config, error) {
	if strings.TrimSpace(pathList) == "" {
		return nil, errors.New("config path required (e.g. -c ./config.yml)")
	}

	var c Config
	for _, p := range strings.Split(pathList, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyDefaults()

	if c.Auth.Secret == "" {
		return nil, errors.New("auth.secret is required")
	}
	if c.Storage == "mongo" && c.Mongo.URI == "" {
		return nil, errors.New("mongo.uri is required for mongo storage")
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.Storage == "" {
		c.Storage = "mongo"
	}
	if c.Server.AppAddr == "" {
		c.Server.AppAddr = ":8080"
	}
	if c.Server.SocketAddr == "" {
		c.Server.SocketAddr = ":8081"
	}
	if c.Server.SocketRoute == "" {
		c.Server.SocketRoute = "/ws"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "audiobridge"
	}
	if c.Mongo.MessagesCollection == "" {
		c.Mongo.MessagesCollection = "messages"
	}
	if c.Mongo.UsersCollection == "" {
		c.Mongo.UsersCollection = "users"
	}
}
