package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/config"
	"github.com/kjstanding/BlueChain-for-ML/internal/consensus"
	"github.com/kjstanding/BlueChain-for-ML/internal/messaging"
	"github.com/kjstanding/BlueChain-for-ML/internal/registry"
)

var (
	cfgFile     string
	peersFlag   string
	portFlag    string
	useFlag     string
	keysFlag    string
	maliciously bool
)

var rootCmd = &cobra.Command{
	Use:   "bluechain-node",
	Short: "Run one BlueChain quorum-consensus node",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a config file (yaml/json/toml)")
	rootCmd.Flags().StringVar(&peersFlag, "peers", "", "comma-separated host:port list of the fixed global peer set")
	rootCmd.Flags().StringVar(&portFlag, "port", "", "override the listen port")
	rootCmd.Flags().StringVar(&useFlag, "use", "", "payload flavor: Defi or ML")
	rootCmd.Flags().StringVar(&keysFlag, "keys", "", "path to a pre-distributed peer public-key file (see internal/registry.LoadPeerKeysFile)")
	rootCmd.Flags().BoolVar(&maliciously, "malicious", false, "run this node in its deliberately-misbehaving mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	for key, name := range map[string]string{"port": "port", "use": "use", "is_malicious": "malicious"} {
		if f := cmd.Flags().Lookup(name); f.Changed {
			v.BindPFlag(key, f)
		}
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg.GlobalPeers = parsePeers(peersFlag)

	log := newLogger(cfg.DebugLevel)
	self := address.Address{Host: "127.0.0.1", Port: cfg.Port}

	reg := registry.New()
	keys, err := registry.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("main: generating keypair: %w", err)
	}

	if keysFlag != "" {
		peerKeys, err := registry.LoadPeerKeysFile(keysFlag)
		if err != nil {
			return fmt.Errorf("main: loading peer keys: %w", err)
		}
		for addr, pub := range peerKeys {
			reg.WritePublicKey(addr, pub)
		}
		log.WithField("count", len(peerKeys)).Info("loaded pre-distributed peer public keys")
	}

	node := consensus.New(cfg, self, cfg.GlobalPeers, reg, keys, log.WithField("node", self.String()))
	node.Bootstrap()

	ln, err := messaging.Listen(":" + cfg.Port)
	if err != nil {
		return fmt.Errorf("main: listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"use":         cfg.Use,
		"num_nodes":   cfg.NumNodes,
		"quorum_size": cfg.QuorumSize,
		"peers":       len(cfg.GlobalPeers),
	}).Info("bluechain-node starting")

	go node.Serve(ctx, ln)
	go heartbeat(ctx, node, log)

	<-ctx.Done()
	log.Info("bluechain-node shutting down")
	ln.Close()
	time.Sleep(100 * time.Millisecond)
	return nil
}

// heartbeat periodically kicks off a new round when self is a member of the
// current quorum and the round is otherwise idle, grounded on the original's
// main-loop thread that repeatedly checked inQuorum()/state and called
// sendQuorumReady when both held.
func heartbeat(ctx context.Context, node *consensus.Node, log *logrus.Logger) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if node.Phase() == consensus.PhaseIdle && node.InQuorum() {
				go node.SendQuorumReady(ctx)
			}
		}
	}
}

func parsePeers(raw string) []address.Address {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]address.Address, 0, len(parts))
	for _, p := range parts {
		host, port, ok := strings.Cut(strings.TrimSpace(p), ":")
		if !ok {
			continue
		}
		out = append(out, address.Address{Host: host, Port: port})
	}
	return out
}

func newLogger(debugLevel int) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch {
	case debugLevel >= 2:
		log.SetLevel(logrus.DebugLevel)
	case debugLevel == 1:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}
