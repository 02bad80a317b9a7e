package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/choreo/internal/engine"
	"github.com/san-kum/choreo/internal/host"
	"github.com/san-kum/choreo/internal/logging"
	"github.com/san-kum/choreo/internal/server"
	"github.com/san-kum/choreo/internal/sink"
)

// serve runs one engine on a real frame clock. Browser clients feed it over
// websocket and receive every broadcast; an optional MQTT sink mirrors the
// broadcasts to a broker.
func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = addr
	}
	if cmd.Flags().Changed("mqtt") {
		cfg.MQTT.Broker = broker
	}
	if cmd.Flags().Changed("topic") {
		cfg.MQTT.Topic = topic
	}

	log := newLogger(cfg)
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	params := cfg.EngineParams()

	elements := append(append([]string(nil), params.Sections...), params.Hoverables...)
	doc := host.NewMemory(elements...)
	eng := engine.New(doc, reg, params, engine.WithLogger(logging.Component(log, "engine")))
	defer eng.Close()

	if cfg.MQTT.Broker != "" {
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = fmt.Sprintf("choreo-%d", os.Getpid())
		}
		mq, err := sink.Connect(cfg.MQTT.Broker, clientID, cfg.MQTT.Topic, log)
		if err != nil {
			return err
		}
		defer mq.Close()
		if err := eng.Subscribe("mqtt", mq.Handle); err != nil {
			return err
		}
		log.Info().Str("topic", mq.Topic()).Msg("mqtt sink attached")
	}

	if err := eng.Start(engine.NewFrameClock(cfg.FPS)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(eng, doc,
		server.WithLogger(log),
		server.WithOriginPatterns(origins...),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
