package main

// Drives a tree-edit session, either in-process against an in-memory
// repository or across TCP against a running svneditd. The scripted edit
// exercises the whole operation vocabulary and optionally dumps the
// resulting transaction tree as a Graphviz dot file.

import (
	"crypto/sha1"
	"fmt"
	"net"
	"os"

	"github.com/rcowham/svnedit/config"
	"github.com/rcowham/svnedit/editor"
	"github.com/rcowham/svnedit/editor/wireedit"
	"github.com/rcowham/svnedit/repo"
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"

	"github.com/emicklei/dot"
	"github.com/perforce/p4prometheus/version"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

func fileContent(data string) tree.Content {
	sum := sha1.Sum([]byte(data))
	return tree.Content{Kind: tree.KindFile, Checksum: sum[:], Stream: []byte(data)}
}

func inTxn(path string) tree.PegPath {
	return tree.PegPath{Rev: tree.InTransaction, Path: path}
}

// driveSeed commits an initial /trunk layout as revision 1.
func driveSeed(ed *editor.Editor) error {
	root := editor.AtAnchor(inTxn(""))
	if err := ed.Mk(root, "trunk", tree.KindDir); err != nil {
		return err
	}
	if err := ed.Mk(editor.Under(inTxn(""), "trunk"), "docs", tree.KindDir); err != nil {
		return err
	}
	if err := ed.Mk(editor.Under(inTxn(""), "trunk"), "README", tree.KindFile); err != nil {
		return err
	}
	if err := ed.Put(editor.Under(inTxn(""), "trunk/README"), fileContent("hello\n")); err != nil {
		return err
	}
	return ed.Complete()
}

// driveEdit branches /trunk to /branches/rel and moves the README into
// docs, then commits.
func driveEdit(ed *editor.Editor) error {
	root := editor.AtAnchor(inTxn(""))
	if err := ed.Mk(root, "branches", tree.KindDir); err != nil {
		return err
	}
	if err := ed.Cp(tree.PegPath{Rev: 1, Path: "trunk"}, editor.Under(inTxn(""), "branches"), "rel"); err != nil {
		return err
	}
	if err := ed.Mv(tree.PegPath{Rev: 1, Path: "trunk/README"}, editor.Under(inTxn(""), "trunk/docs"), "README"); err != nil {
		return err
	}
	return ed.Complete()
}

// writeGraph renders the committed tree to a Graphviz dot file, one node
// per node-branch labelled with its NBID and path.
func writeGraph(tx *tree.Transaction, filename string) error {
	g := dot.NewGraph(dot.Directed)
	nodes := map[tree.NBID]dot.Node{}
	nodes[tree.Root] = g.Node("r: /")
	var link func(id tree.NBID)
	link = func(id tree.NBID) {
		for _, child := range tx.Children(id) {
			nodes[child.ID] = g.Node(fmt.Sprintf("%d: /%s", child.ID, tx.Path(child.ID)))
			g.Edge(nodes[id], nodes[child.ID])
			link(child.ID)
		}
	}
	link(tree.Root)

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(g.String()))
	return err
}

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

func main() {
	var (
		configFile = kingpin.Flag(
			"config",
			"Config file for svnedit.",
		).Default("svnedit.yaml").Short('c').String()
		server = kingpin.Flag(
			"server",
			"Address of a running svneditd; empty means drive an in-process repository.",
		).Short('s').String()
		outputGraph = kingpin.Flag(
			"graphfile",
			"Graphviz dot file to output the committed tree structure to (in-process only).",
		).String()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("svnedit")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Drives a scripted tree-edit session against an in-memory or remote repository\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	cfg := loadConfig(logger, *configFile)
	logger.Level = cfg.ParsedLogLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}
	logger.Infof("%v", version.Print("svnedit"))

	if *server != "" {
		runRemote(logger, cfg, *server)
		return
	}
	runLocal(logger, cfg, *outputGraph)
}

func runRemote(logger *logrus.Logger, cfg *config.Config, addr string) {
	// Each session is one connection; svneditd seeds its repository from
	// whatever this session commits, so drive the seed edit only.
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		logger.Errorf("failed to connect to %s: %v", addr, err)
		os.Exit(-1)
	}
	defer nc.Close()

	conn := wire.NewConn(nc, wire.WithBufSize(cfg.BufferSize), wire.WithLogger(logger))
	ed := editor.New(wireedit.RemoteCallbacks(conn))
	if err := driveSeed(ed); err != nil {
		logger.Errorf("remote edit failed: %v", err)
		os.Exit(-1)
	}
	logger.Infof("remote edit committed")
}

func runLocal(logger *logrus.Logger, cfg *config.Config, graphFile string) {
	backend := repo.NewMemory(logger)
	defer backend.Close()
	caps := editor.Capabilities{AllowTxnCopySource: cfg.AllowTxnCopySource}

	session := func(drive func(*editor.Editor) error) {
		h, err := backend.BeginTxn(backend.Latest())
		if err != nil {
			logger.Errorf("failed to begin transaction: %v", err)
			os.Exit(-1)
		}
		ed := editor.New(editor.NewTreeCallbacks(backend, h, caps, logger))
		if err := drive(ed); err != nil {
			logger.Errorf("edit failed: %v", err)
			os.Exit(-1)
		}
	}
	session(driveSeed)
	session(driveEdit)

	final, err := backend.Snapshot(backend.Latest())
	if err != nil {
		logger.Errorf("failed to snapshot: %v", err)
		os.Exit(-1)
	}
	logger.Infof("committed %d revisions", backend.Latest())
	final.Walk(func(b *tree.Branch) {
		if b.ID != tree.Root {
			logger.Infof("  /%s (%s)", final.Path(b.ID), b.Content.Kind)
		}
	})

	if graphFile != "" {
		if err := writeGraph(final, graphFile); err != nil {
			logger.Errorf("failed to write graph: %v", err)
			os.Exit(-1)
		}
		logger.Infof("wrote tree graph to %s", graphFile)
	}
}
