package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"gomape/common"
	"gomape/mape"
	"gomape/setup"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address      string        `yaml:"address"`
	Tunnel       setup.Options `yaml:"tunnel"`
	ExcludePorts []string      `yaml:"excludePorts"`
}

const usage = "usage: gomape [-v level] [-c config] [-a addr] calculate|setup|teardown|check"

func main() {
	loglvlStr := flag.String("v", "info", "debug level")
	configStr := flag.String("c", "config.yaml", "config location")
	addrStr := flag.String("a", "", "customer ipv6 address, overrides the config")
	flag.Parse()
	loglvl, err := zerolog.ParseLevel(*loglvlStr)
	if err != nil {
		panic("Failed to parse log level, try debug")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(loglvl).With().Timestamp().Logger().With().Caller().Logger()

	sub := flag.Arg(0)
	if sub == "" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	f, err := os.Open(*configStr)
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to open config %s", *configStr)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to parse config '%s'", *configStr)
	}
	log.Debug().Msgf("Config: %+v", cfg)

	if *addrStr != "" {
		cfg.Address = *addrStr
	}
	addr := net.ParseIP(cfg.Address)
	if addr == nil {
		log.Fatal().Msgf("Failed to parse address '%s'", cfg.Address)
	}

	params, err := mape.Calculate(addr)
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to derive MAP-E parameters for %s", addr)
	}
	for _, port := range resolveExcludes(cfg.ExcludePorts) {
		if err := params.ExcludePort(port); err != nil {
			log.Fatal().Err(err).Msgf("Failed to exclude port %d", port)
		}
		log.Debug().Msgf("Port %d excluded from NAT", port)
	}

	ctx := context.Background()
	switch sub {
	case "calculate":
		fmt.Println(params)
	case "setup":
		if err := setup.Apply(ctx, params, cfg.Tunnel); err != nil {
			log.Fatal().Err(err).Msg("Setup failed")
		}
		log.Info().Msgf("MAP-E tunnel up, NAT restricted to %d port ranges", len(params.PortRanges))
	case "teardown":
		if err := setup.Destroy(ctx, params, cfg.Tunnel); err != nil {
			log.Fatal().Err(err).Msg("Teardown failed")
		}
	case "check":
		if err := setup.Check(ctx, params.BRAddr, 5*time.Second); err != nil {
			log.Fatal().Err(err).Msg("Border relay unreachable")
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		log.Fatal().Msgf("Unknown subcommand '%s'", sub)
	}
}

// resolveExcludes turns the config entries into port numbers. Entries can be
// numeric or service names out of /etc/services.
func resolveExcludes(entries []string) (ports []uint16) {
	if len(entries) == 0 {
		return
	}
	services, err := common.LoadServices()
	if err != nil {
		log.Debug().Err(err).Msg("Could not load /etc/services, service names unavailable")
	}
	for _, entry := range entries {
		port, err := common.ResolvePort(services, entry)
		if err != nil {
			log.Fatal().Err(err).Msgf("Bad excludePorts entry '%s'", entry)
		}
		ports = append(ports, port)
	}
	return
}
