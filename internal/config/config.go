package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host     string   `koanf:"host"`
	Google   Google   `koanf:"google"`
	Ritual   Ritual   `koanf:"ritual"`
	Database Database `koanf:"db"`
}

// Google holds the service-account identity used to sign calendar API
// assertions. PrivateKey takes precedence over PrivateKeyPath when both are
// set; the key material is never logged.
type Google struct {
	Issuer         string        `koanf:"issuer"`
	PrivateKey     string        `koanf:"privatekey"`
	PrivateKeyPath string        `koanf:"privatekeypath"`
	Audience       string        `koanf:"audience"`
	TokenTTL       time.Duration `koanf:"tokenttl"`
	RequestTimeout time.Duration `koanf:"requesttimeout"`
}

type Ritual struct {
	ChannelId int64  `koanf:"channelid"`
	Token     string `koanf:"token"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Host: "http://localhost:8181",
		Google: Google{
			Audience:       "https://www.googleapis.com/auth/calendar",
			TokenTTL:       10 * time.Minute,
			RequestTimeout: 30 * time.Second,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "guildbot",
			Pass:   "",
			Name:   "guildbot",
			Schema: "guildbot",
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "GUILDBOT_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "GUILDBOT_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
