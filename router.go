package main

import (
	"tunedeck/gate"
	"tunedeck/library"
	"tunedeck/songgen"
	"tunedeck/vault"

	"github.com/cdfmlr/crud/router"
	"github.com/gin-gonic/gin"
)

func MakeRouter(cfg *TunedeckConfig, store *library.Store, client *songgen.Client, g *gate.Gate, v *vault.Vault) *gin.Engine {
	r := router.NewRouter()

	// login and the player's audio stream stay outside the gate
	g.RegisterRoutes(r)
	v.RegisterStatic(r)
	if cfg.FrontendDir != "" {
		r.Static("/app", cfg.FrontendDir)
	}

	api := r.Group("/", g.Middleware())

	// projects / sessions / tracks
	store.RegisterRoutes(api)

	// generation-service feed & imports
	importer := &songgen.Importer{Client: client, Store: store}
	importer.RegisterRoutes(api)

	// downloads & catalog
	v.RegisterRoutes(api)

	return r
}
