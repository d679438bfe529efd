package controllers

import (
	"context"
	"errors"

	"github.com/refermate/partner-portal-backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:  "dev",
			Port: "8080",
		},
	}
}

type deadPinger struct{}

func (deadPinger) Ping(_ context.Context) error {
	return errors.New("connection refused")
}
