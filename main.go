package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/plork/plork/activitypub"
	"github.com/plork/plork/db"
	"github.com/plork/plork/util"
	"github.com/plork/plork/web"
)

func main() {
	conf, err := util.ReadConf()
	if err != nil {
		log.Fatal("Could not read configuration", "err", err)
	}

	log.Info("Configuration loaded")
	fmt.Println(util.PrettyPrint(conf))

	store, err := db.Open(util.ResolveFilePath(conf.Conf.DbFile))
	if err != nil {
		log.Fatal("Could not open database", "err", err)
	}
	defer store.Close()

	inbox := activitypub.NewInbox(store, conf)
	outbox := activitypub.NewOutbox(store, conf)
	server := web.NewServer(conf, store, inbox, outbox)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort),
		Handler: server.Router(),
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", "err", err)
		}
	}()

	<-done
	log.Info("Stopping HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatal("Shutdown failed", "err", err)
	}
}
