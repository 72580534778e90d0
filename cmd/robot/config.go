package main

import (
	"time"

	"github.com/sherifabdlnaby/configuro"
)

// Config values can be set using either environment variables with `CONFIG_`
// prefix or config.yml file placed in working directory.
// See https://github.com/sherifabdlnaby/configuro.
type Config struct {
	Logging  Logging
	Database Database
	PubSub   PubSub
	Metrics  Metrics
	Trading  Trading
	Venues   []Venue
}

type Logging struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type Database struct {
	// Either "sqlite" or "postgres".
	Driver string

	// sqlite database file.
	File string

	Address      string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MigrationDir string
}

type PubSub struct {
	Enabled   bool
	ProjectID string
	Topic     string
}

type Metrics struct {
	Address string
}

type Trading struct {
	Symbol          string
	Strategy        string
	Direction       string
	Winrate         float64
	Attenuation     float64
	Duration        time.Duration
	Precision       int
	Demo            bool
	AccountCurrency bool
}

type Venue struct {
	Name          string
	WindowSeconds []int
	Payout        float64
	MinAmount     float64
	Balance       float64
	WinChance     float64
}

func readConfig() (*Config, error) {
	loader, err := configuro.NewConfig()
	if err != nil {
		return nil, err
	}

	// Default config values.
	config := &Config{
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Database: Database{
			Driver:   "sqlite",
			File:     "accounts.db",
			Address:  "localhost:5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disabled",
		},
		Trading: Trading{
			Symbol:      "EURUSD",
			Strategy:    "default",
			Direction:   "up",
			Winrate:     0.6,
			Attenuation: 0.4,
			Duration:    3 * time.Minute,
			Precision:   2,
			Demo:        true,
		},
		Venues: []Venue{
			{
				Name:          "paper",
				WindowSeconds: []int{58, 59, 0},
				Payout:        0.8,
				MinAmount:     1,
				Balance:       10000,
				WinChance:     0.6,
			},
		},
	}

	err = loader.Load(config)
	if err != nil {
		return nil, err
	}

	err = loader.Validate(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
