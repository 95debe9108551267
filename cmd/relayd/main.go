// Command relayd runs the chat relay server.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/hubline/relay/config"
	"github.com/hubline/relay/src/server"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	cfg := config.FromEnv()
	srv := server.New(cfg, logger)

	if err := srv.Listen(); err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info().Msg("stop signal received, draining")
		srv.Stop()
	}()

	srv.Serve()
}
