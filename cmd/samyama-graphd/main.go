// Command samyama-graphd is the process entrypoint: it opens one node's
// persistence engine, optionally starts its Raft replica and shard
// router, and serves the Request API over gRPC.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samyama-ai/samyama-graph-sub001/internal/cluster"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/log"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/metrics"
	"github.com/samyama-ai/samyama-graph-sub001/internal/persistence"
	"github.com/samyama-ai/samyama-graph-sub001/internal/router"
	"github.com/samyama-ai/samyama-graph-sub001/internal/router/routerpb"
	"github.com/samyama-ai/samyama-graph-sub001/internal/session"
	"github.com/samyama-ai/samyama-graph-sub001/internal/tenant"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "samyama-graphd",
	Short:   "samyama-graphd is a multi-tenant labeled-property-graph database node",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("samyama-graphd version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("log-level", envOr("SAMYAMA_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit JSON-formatted logs")
	cobra.OnInitialize(initLogging)
	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start this node: open its store, optionally join a Raft cluster, and serve the Request API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("node-id", envOr("SAMYAMA_NODE_ID", "node-1"), "this node's Raft identity")
	serveCmd.Flags().String("data-dir", envOr("SAMYAMA_DATA_DIR", "./data"), "directory for WAL, keyed store, and Raft log")
	serveCmd.Flags().String("raft-addr", envOr("SAMYAMA_RAFT_ADDR", "127.0.0.1:7100"), "bind address for Raft's own TCP transport")
	serveCmd.Flags().String("grpc-addr", envOr("SAMYAMA_GRPC_ADDR", "127.0.0.1:7101"), "bind address for the Request API / router gRPC service")
	serveCmd.Flags().String("metrics-addr", envOr("SAMYAMA_METRICS_ADDR", "127.0.0.1:9090"), "bind address for the Prometheus /metrics endpoint")
	serveCmd.Flags().Bool("bootstrap", os.Getenv("SAMYAMA_BOOTSTRAP") == "true", "bootstrap a new single-voter Raft cluster rooted at this node")
	serveCmd.Flags().String("peers", envOr("SAMYAMA_PEERS", ""), "comma-separated node_id=addr pairs this node already knows about, for router static routes")
}

func runServe(cmd *cobra.Command, args []string) error {
	nodeID, _ := cmd.Flags().GetString("node-id")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	raftAddr, _ := cmd.Flags().GetString("raft-addr")
	grpcAddr, _ := cmd.Flags().GetString("grpc-addr")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	bootstrap, _ := cmd.Flags().GetBool("bootstrap")

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	interner := graphval.NewInterner()
	quotas := tenant.NewRegistry()
	engine, err := persistence.Open(dataDir, interner, quotas)
	if err != nil {
		return fmt.Errorf("opening persistence engine: %w", err)
	}
	defer engine.Close()

	node := cluster.New(cluster.Config{NodeID: nodeID, BindAddr: raftAddr, DataDir: dataDir}, engine)
	if bootstrap {
		if err := node.Bootstrap(); err != nil {
			return fmt.Errorf("bootstrapping cluster: %w", err)
		}
		log.Logger.Info().Str("node_id", nodeID).Msg("raft cluster bootstrapped")
	}

	sess := session.New(engine, quotas, node)

	// rt is this node's view of tenant ownership: a wire-protocol front
	// end consults it before deciding whether to call sess.Dispatch
	// directly or forward through a router.Proxy to the owning node.
	rt := router.New(nodeID)
	for t, addr := range parsePeers(cmd) {
		rt.UpdateRoute(t, addr)
	}
	log.Logger.Info().Int("routes", len(rt.Routes())).Msg("shard routing table loaded")

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", grpcAddr, err)
	}
	grpcServer := grpc.NewServer()
	routerpb.RegisterRouterServer(grpcServer, &router.Server{Local: sess})
	go func() {
		log.Logger.Info().Str("addr", grpcAddr).Msg("request api listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		log.Logger.Info().Str("addr", metricsAddr).Msg("metrics listening")
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Logger.Info().Msg("shutting down")
	grpcServer.GracefulStop()
	return engine.Checkpoint()
}

// parsePeers turns --peers "t1=node-1:addr1,t2=node-2:addr2" into a
// tenant -> node-address map for the router's static routing table.
func parsePeers(cmd *cobra.Command) map[string]string {
	raw, _ := cmd.Flags().GetString("peers")
	out := make(map[string]string)
	if raw == "" {
		return out
	}
	for _, pair := range splitComma(raw) {
		k, v, ok := splitEquals(pair)
		if ok {
			out[k] = v
		}
	}
	return out
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func splitEquals(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
