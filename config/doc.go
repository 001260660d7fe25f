// Package config loads the tunable knobs of a stack from a config file,
// an optional .env file and STACK_-prefixed environment variables.
//
// It uses Viper for files and environment binding and godotenv for .env
// files. Values are applied in that order, so the environment wins.
//
// # Usage
//
//	cfg, err := config.Load(config.WithConfigFile("stack.yml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s := adapter.Stream(cfg.StreamOptions()...)(terminal)
//	s = stage.Chain(config.Middleware[bridge.Conn, struct{}](cfg, "echo")...)(s)
//
// Recognised keys:
//
//	stream.buffer_size        chunk size and pipe capacity of the stream adapter
//	channel.capacity          per-direction buffer of the channel adapter
//	timeout                   per-call deadline, 0 disables
//	rate_limit.rate           calls per second, 0 disables
//	rate_limit.burst          token bucket burst
//	max_in_flight             concurrency limit, 0 disables
//	log.level                 debug, info, warn or error
//	log.format                json or console
//	websocket.addr            listen address of the WebSocket transport
//	websocket.read_timeout    per-message read deadline
//	websocket.write_timeout   per-message write deadline
package config
