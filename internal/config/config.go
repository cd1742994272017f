package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/mrrauch/queue-operator/internal/images"
)

// Config is the operator configuration read from QUEUE_* environment variables.
type Config struct {
	Debug bool `envconfig:"DEBUG" default:"false"`

	// WatchNamespace limits the manager cache to one namespace. Empty watches all.
	WatchNamespace string `envconfig:"WATCH_NAMESPACE"`

	DefaultImage string `envconfig:"DEFAULT_IMAGE" default:"rabbitmq:3"`

	// RequeueSeconds is how often a Queue that is not ready yet is revisited.
	RequeueSeconds int `envconfig:"REQUEUE_SECONDS" default:"30"`
}

// Load processes the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("QUEUE", &cfg); err != nil {
		return Config{}, err
	}
	cfg.DefaultImage = images.ImageOrDefault(cfg.DefaultImage, images.DefaultRabbitMQ)
	return cfg, nil
}

// RequeueAfter returns RequeueSeconds as a duration.
func (c Config) RequeueAfter() time.Duration {
	return time.Duration(c.RequeueSeconds) * time.Second
}
