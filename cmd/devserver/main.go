package main

import (
	"net/http"
	"os"

	"github.com/THE-STEAMERS/SmartChainERP/internal/devserver"
	"github.com/THE-STEAMERS/SmartChainERP/internal/logging"
)

// main runs the in-memory dev backend on :8000 and prints the seeded
// token pair so a dashboard client can be pointed at it.
func main() {
	log := logging.New("devserver")

	srv := devserver.New()
	access, refresh := srv.Tokens()
	log.Info("dev backend ready", "access", access, "refresh", refresh)

	addr := os.Getenv("DEVSERVER_ADDR")
	if addr == "" {
		addr = ":8000"
	}
	log.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
