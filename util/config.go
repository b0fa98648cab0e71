package util

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const Name = "plork"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host               string
		HttpPort           int    `yaml:"httpPort"`
		SslDomain          string `yaml:"sslDomain"`
		DbFile             string `yaml:"dbFile"`
		AutoAcceptFollows  bool   `yaml:"autoAcceptFollows"`
		RequireSignedInbox bool   `yaml:"requireSignedInbox"`
	}
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Infof("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Warnf("Could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Infof("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("PLORK_HOST")
	envHttpPort := os.Getenv("PLORK_HTTPPORT")
	envSslDomain := os.Getenv("PLORK_SSLDOMAIN")
	envDbFile := os.Getenv("PLORK_DBFILE")
	envAutoAccept := os.Getenv("PLORK_AUTOACCEPT_FOLLOWS")
	envSignedInbox := os.Getenv("PLORK_REQUIRE_SIGNED_INBOX")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			log.Warnf("Invalid PLORK_HTTPPORT: %v", err)
		} else {
			c.Conf.HttpPort = v
		}
	}

	if envSslDomain != "" {
		c.Conf.SslDomain = envSslDomain
	}

	if envDbFile != "" {
		c.Conf.DbFile = envDbFile
	}

	if envAutoAccept == "true" {
		c.Conf.AutoAcceptFollows = true
	} else if envAutoAccept == "false" {
		c.Conf.AutoAcceptFollows = false
	}

	if envSignedInbox == "true" {
		c.Conf.RequireSignedInbox = true
	} else if envSignedInbox == "false" {
		c.Conf.RequireSignedInbox = false
	}

	return c, nil
}
