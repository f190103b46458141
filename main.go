package main

import (
	"context"
	"flag"

	"tunedeck/gate"
	"tunedeck/library"
	"tunedeck/songgen"
	"tunedeck/vault"

	"github.com/cdfmlr/crud/log"
)

var logger = log.ZoneLogger("tunedeck/main")

func main() {
	configPath := flag.String("config", "tunedeck.yaml", "path to the yaml config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("load config failed")
	}

	// catalog db before any routes, like metadata before stores
	if err := vault.Start(cfg.Vault.DB); err != nil {
		logger.WithError(err).Fatal("vault start failed")
	}

	store, err := library.NewStore(cfg.Library.Dir)
	if err != nil {
		logger.WithError(err).Fatal("library store failed")
	}

	client := songgen.NewClient(cfg.Songgen.BaseUrl, cfg.Songgen.Token, cfg.Songgen.PageDelayDuration())
	g := gate.NewGate(cfg.Gate.Enabled, cfg.Gate.PasswordHashes)

	v, err := vault.NewVault(cfg.Vault.AudioDir, cfg.PublicBaseUrl, client, store)
	if err != nil {
		logger.WithError(err).Fatal("vault init failed")
	}

	if cfg.Vault.Watch {
		// catch up on files dropped while the server was down, then
		// watch for new ones
		go func() {
			if err := v.IndexDir(context.Background()); err != nil {
				logger.WithError(err).Error("vault index failed")
			}
		}()

		stop, err := v.Watch(context.Background())
		if err != nil {
			logger.WithError(err).Fatal("vault watch failed")
		}
		defer stop()
	}

	r := MakeRouter(cfg, store, client, g, v)
	if err := r.Run(cfg.HttpListenAddr); err != nil {
		logger.WithError(err).Fatal("http server failed")
	}
}
