package avro

import (
	"fmt"
	"sync"

	"github.com/linkedin/goavro/v2"
	"github.com/riferrei/srclient"
)

// RegistryConfig points the decoder at a Confluent schema registry. When set,
// payloads are expected in the Confluent wire format and writer schemas are
// fetched by ID.
type RegistryConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// codecCache resolves writer codecs by schema ID. srclient caches the schema
// documents; this layer pins the parsed goavro codec per ID so the hot decode
// path stays off the network and the parser.
type codecCache struct {
	fetch func(schemaID int) (string, error)

	mu     sync.RWMutex
	codecs map[int]*goavro.Codec
}

func newCodecCache(cfg RegistryConfig) *codecCache {
	client := srclient.NewSchemaRegistryClient(cfg.URL)
	if cfg.Username != "" {
		client.SetCredentials(cfg.Username, cfg.Password)
	}
	return &codecCache{
		fetch: func(schemaID int) (string, error) {
			schema, err := client.GetSchema(schemaID)
			if err != nil {
				return "", err
			}
			return schema.Schema(), nil
		},
		codecs: make(map[int]*goavro.Codec),
	}
}

func (c *codecCache) codecFor(schemaID int) (*goavro.Codec, error) {
	c.mu.RLock()
	codec, ok := c.codecs[schemaID]
	c.mu.RUnlock()
	if ok {
		return codec, nil
	}

	text, err := c.fetch(schemaID)
	if err != nil {
		return nil, fmt.Errorf("avro: fetch schema %d: %w", schemaID, err)
	}
	codec, err = goavro.NewCodec(text)
	if err != nil {
		return nil, fmt.Errorf("avro: parse schema %d: %w", schemaID, err)
	}

	c.mu.Lock()
	c.codecs[schemaID] = codec
	c.mu.Unlock()
	return codec, nil
}
