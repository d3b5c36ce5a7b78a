// Package config loads and validates the YAML configuration file that
// names the chainweb node, the store connection, and the set of
// events to index.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// numChains is the fixed chain count of the network this indexer
// targets; valid chain ids are "0".."19".
const numChains = 20

// EventConfig is one entry of the events list: the fully-qualified
// event name, the chains it should be watched on, and an optional
// height range (a nil bound clamps to the network's global bound).
type EventConfig struct {
	Name   string   `yaml:"name"`
	Chains []string `yaml:"chains"`
	Height [2]*int64 `yaml:"height"`
}

// PublishConfig enables the optional Kafka republishing sink. A nil
// Publish field on Config means the indexer never builds a publisher.
type PublishConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Config is the top-level YAML document shape.
type Config struct {
	NodeURL  string         `yaml:"node"`
	StoreURI string         `yaml:"mongo_uri"`
	DB       string         `yaml:"db"`
	Events   []EventConfig  `yaml:"events"`
	Publish  *PublishConfig `yaml:"publish"`
}

// Load reads and parses the config file at path, applying defaults and
// validating required fields.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.NodeURL == "" {
		return errors.New("config: node is required")
	}
	if c.StoreURI == "" {
		return errors.New("config: mongo_uri is required")
	}
	if c.DB == "" {
		return errors.New("config: db is required")
	}
	if len(c.Events) == 0 {
		return errors.New("config: events must list at least one event")
	}
	for i, e := range c.Events {
		if e.Name == "" {
			return errors.Errorf("config: events[%d].name is required", i)
		}
		if len(e.Chains) == 0 {
			return errors.Errorf("config: events[%d].chains must list at least one chain", i)
		}
		for _, chain := range e.Chains {
			if !validChainID(chain) {
				return errors.Errorf("config: events[%d].chains: %q is not a valid chain id (0..%d)", i, chain, numChains-1)
			}
		}
	}
	if c.Publish != nil {
		if len(c.Publish.Brokers) == 0 {
			return errors.New("config: publish.brokers must list at least one broker")
		}
		if c.Publish.Topic == "" {
			return errors.New("config: publish.topic is required")
		}
	}
	return nil
}

func validChainID(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n < numChains
}
