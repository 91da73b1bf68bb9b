package main

// Serves the tree-edit protocol over TCP: each accepted connection gets
// its own transaction against the shared in-memory repository, and a
// dispatch loop that decodes edit commands until complete or abort.

import (
	"net"
	"os"

	"github.com/rcowham/svnedit/config"
	"github.com/rcowham/svnedit/editor"
	"github.com/rcowham/svnedit/editor/wireedit"
	"github.com/rcowham/svnedit/repo"
	"github.com/rcowham/svnedit/wire"

	"github.com/perforce/p4prometheus/version"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

func loadConfig(logger *logrus.Logger, filename string) *config.Config {
	if _, err := os.Stat(filename); err != nil {
		cfg, _ := config.LoadConfigString(nil)
		return cfg
	}
	cfg, err := config.LoadConfigFile(filename)
	if err != nil {
		logger.Errorf("error loading config file: %v", err)
		os.Exit(-1)
	}
	return cfg
}

func serveSession(nc net.Conn, backend *repo.Memory, cfg *config.Config, logger *logrus.Logger) {
	defer nc.Close()

	h, err := backend.BeginTxn(backend.Latest())
	if err != nil {
		logger.Errorf("failed to begin transaction: %v", err)
		return
	}
	caps := editor.Capabilities{AllowTxnCopySource: cfg.AllowTxnCopySource}
	cb := editor.NewTreeCallbacks(backend, h, caps, logger)
	conn := wire.NewConn(nc, wire.WithBufSize(cfg.BufferSize), wire.WithLogger(logger))

	logger.Infof("session started from %v at base r%d", nc.RemoteAddr(), h.Base())
	if err := conn.RunCommandLoop(wireedit.NewServerTable(cb), nil); err != nil {
		logger.Errorf("session from %v failed: %v", nc.RemoteAddr(), err)
		return
	}
	logger.Infof("session from %v ended, latest revision r%d", nc.RemoteAddr(), backend.Latest())
}

func main() {
	var (
		configFile = kingpin.Flag(
			"config",
			"Config file for svneditd.",
		).Default("svneditd.yaml").Short('c').String()
		listen = kingpin.Flag(
			"listen",
			"Address to listen on (overrides config).",
		).Short('l').String()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("svneditd")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Serves the tree-edit protocol over TCP against an in-memory repository\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	cfg := loadConfig(logger, *configFile)
	logger.Level = cfg.ParsedLogLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}
	if *listen != "" {
		cfg.ListenAddress = *listen
	}

	logger.Infof("%v", version.Print("svneditd"))

	backend := repo.NewMemory(logger)
	defer backend.Close()

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Errorf("failed to listen on %s: %v", cfg.ListenAddress, err)
		os.Exit(-1)
	}
	logger.Infof("listening on %s", cfg.ListenAddress)

	for {
		nc, err := ln.Accept()
		if err != nil {
			logger.Errorf("accept failed: %v", err)
			continue
		}
		go serveSession(nc, backend, cfg, logger)
	}
}
