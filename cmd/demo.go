package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"syscall"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/app"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/config"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/console"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/utils"
	"github.com/namsral/flag"
)

const envPrefix = "GLASSFLOW_DEMO"

func init() {
	// --config es el JSON del pipeline, no un archivo de flags
	flag.DefaultConfigFlagname = ""
}

const usage = `Usage: glassflow-demo <command> [flags]

Commands:
  dedup        run the deduplication demo
  join         run the join demo
  walkthrough  run the three part ClickHouse walkthrough
  topics       create the topics of a pipeline config
  history      show the latest recorded demo runs

Run 'glassflow-demo <command> -h' for the flags of a command.
`

// commonFlags son los flags que comparten todos los comandos.
type commonFlags struct {
	appConfig     string
	glassflowHost string
	seed          uint64
	noColor       bool
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.appConfig, "app-config", config.DefaultPath, "Path to the demo configuration file")
	fs.StringVar(&c.glassflowHost, "glassflow-host", "", "GlassFlow API host (overrides GlassFlow.Host)")
	fs.Uint64Var(&c.seed, "seed", 0, "Seed for the event generator (0 = time based)")
	fs.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	return c
}

// Execute corre el comando pedido y devuelve el código de salida.
func Execute(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(stderr, "\nSeñal de terminación recibida, cerrando...")
			cancel()
		case <-ctx.Done():
		}
	}()

	name, rest := args[0], args[1:]

	var run func(ctx context.Context, args []string) error
	switch name {
	case "dedup":
		run = runDedup
	case "join":
		run = runJoin
	case "walkthrough":
		run = runWalkthrough
	case "topics":
		run = runTopics
	case "history":
		run = runHistory
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	return exitCode(run(ctx, rest), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrDeclined):
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "interrupted")
		return 130
	case errors.Is(err, app.ErrVerificationFailed), errors.Is(err, app.ErrGlassFlowDown):
		// el detalle ya se mostró en consola
		return 1
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

// session arma la demo y el servidor de métricas a partir de los flags comunes.
type session struct {
	demo   *app.Demo
	server *observability.MetricsServer
}

func newSession(ctx context.Context, common *commonFlags) (*session, error) {
	cfg, err := config.Load(common.appConfig)
	if err != nil {
		return nil, err
	}

	if !utils.StringIsEmptyOrWhitespace(common.glassflowHost) {
		cfg.GlassFlow.Host = common.glassflowHost
	}

	if common.noColor {
		console.DisableColor()
	}

	demo, err := app.NewDemo(ctx, cfg, console.NewStd())
	if err != nil {
		return nil, err
	}

	s := &session{demo: demo}

	if cfg.Metrics.HttpPort > 0 {
		s.server = observability.NewMetricsServer(cfg.Metrics.HttpPort, demo.MetricsService(), demo.Logger())
		s.server.Start(ctx)
		demo.Logger().Info(ctx, "Metrics server started", "port", cfg.Metrics.HttpPort,
			"endpoint", fmt.Sprintf("http://localhost:%d/metrics", cfg.Metrics.HttpPort))
	}

	return s, nil
}

func (s *session) close(ctx context.Context) {
	if s.server != nil {
		s.server.Stop(ctx)
	}
	s.demo.Close(ctx)
}

// withSession maneja el ciclo de vida de la sesión y convierte un panic en error.
func withSession(ctx context.Context, common *commonFlags, fn func(demo *app.Demo) error) (err error) {
	s, err := newSession(ctx, common)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.demo.Logger().Error(ctx, "Panic capturado", err, "stack_trace", string(debug.Stack()))
		}
	}()

	return fn(s.demo)
}

func runDedup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSetWithEnvPrefix("dedup", envPrefix, flag.ExitOnError)
	common := registerCommon(fs)

	opts := app.DedupOptions{}
	fs.IntVar(&opts.NumRecords, "num-records", 10000, "Number of records to generate")
	fs.Float64Var(&opts.DuplicationRate, "duplication-rate", 0.1, "Rate of duplication")
	fs.IntVar(&opts.RPS, "rps", 1000, "Records per second")
	fs.StringVar(&opts.ConfigPath, "config", "config/glassflow/deduplication_pipeline.json", "Path to pipeline configuration file")
	fs.StringVar(&opts.SchemaPath, "generator-schema", "config/glassgen/user_event.json", "Path to generator schema file")
	fs.BoolVar(&opts.SkipConfirmation, "yes", false, "Skip confirmation prompt")
	fs.BoolVar(&opts.SkipConfirmation, "y", false, "Skip confirmation prompt (shorthand)")
	fs.BoolVar(&opts.Cleanup, "cleanup", false, "Cleanup Clickhouse table before running the pipeline")
	fs.BoolVar(&opts.Cleanup, "c", false, "Cleanup Clickhouse table (shorthand)")
	fs.IntVar(&opts.PrintRows, "print-n-rows", 5, "Number of records to print from Clickhouse table")
	fs.IntVar(&opts.PrintRows, "p", 5, "Number of records to print (shorthand)")
	fs.StringVar(&opts.DryRunDir, "dry-run", "", "Write events as NDJSON files to this directory instead of Kafka")

	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.Seed = common.seed

	return withSession(ctx, common, func(demo *app.Demo) error {
		return demo.RunDedup(ctx, opts)
	})
}

func runJoin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSetWithEnvPrefix("join", envPrefix, flag.ExitOnError)
	common := registerCommon(fs)

	opts := app.JoinOptions{}
	fs.IntVar(&opts.LeftNumRecords, "left-num-records", 10000, "Number of records to generate for left events")
	fs.IntVar(&opts.RightNumRecords, "right-num-records", 10000, "Number of records to generate for right events")
	fs.IntVar(&opts.RPS, "rps", 1000, "Records per second")
	fs.StringVar(&opts.ConfigPath, "config", "config/glassflow/join_pipeline.json", "Path to pipeline configuration file")
	fs.StringVar(&opts.LeftSchemaPath, "left-schema", "config/glassgen/order_event.json", "Path to left events generator schema file")
	fs.StringVar(&opts.RightSchemaPath, "right-schema", "config/glassgen/user_event.json", "Path to right events generator schema file")
	fs.BoolVar(&opts.SkipConfirmation, "yes", false, "Skip confirmation prompt")
	fs.BoolVar(&opts.SkipConfirmation, "y", false, "Skip confirmation prompt (shorthand)")
	fs.BoolVar(&opts.Cleanup, "cleanup", false, "Cleanup Clickhouse table before running the pipeline")
	fs.BoolVar(&opts.Cleanup, "c", false, "Cleanup Clickhouse table (shorthand)")
	fs.IntVar(&opts.PrintRows, "print-n-rows", 5, "Number of records to print from Clickhouse table")
	fs.IntVar(&opts.PrintRows, "p", 5, "Number of records to print (shorthand)")
	fs.StringVar(&opts.DryRunDir, "dry-run", "", "Write events as NDJSON files to this directory instead of Kafka")

	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.Seed = common.seed

	return withSession(ctx, common, func(demo *app.Demo) error {
		return demo.RunJoin(ctx, opts)
	})
}

func runWalkthrough(ctx context.Context, args []string) error {
	fs := flag.NewFlagSetWithEnvPrefix("walkthrough", envPrefix, flag.ExitOnError)
	common := registerCommon(fs)

	opts := app.WalkthroughOptions{}
	var (
		brokers  string
		chHost   string
		chPort   int
		chUser   string
		chPass   string
		database string
	)
	fs.IntVar(&opts.NumRecords, "num-records", 100000, "Number of order events per part")
	fs.IntVar(&opts.JoinKeys, "join-keys", 10000, "Number of users (join keys) for part 3")
	fs.IntVar(&opts.RPS, "rps", 10000, "Records per second for order events")
	fs.Float64Var(&opts.Ratio, "ratio", 0.5, "Duplication ratio for parts 1 and 2")
	fs.IntVar(&opts.Part, "part", 0, "Run only this part (1-3); 0 runs all")
	fs.StringVar(&brokers, "brokers", "localhost:9092", "Comma separated Kafka brokers")
	fs.StringVar(&chHost, "clickhouse-host", "localhost", "ClickHouse host")
	fs.IntVar(&chPort, "clickhouse-port", 8443, "ClickHouse HTTP port (8123 plain, anything else TLS)")
	fs.StringVar(&chUser, "clickhouse-user", "default", "ClickHouse username")
	fs.StringVar(&chPass, "clickhouse-password", "", "ClickHouse password")
	fs.StringVar(&database, "clickhouse-database", "default", "ClickHouse database")

	if err := fs.Parse(args); err != nil {
		return err
	}

	opts.Seed = common.seed
	opts.Brokers = utils.SplitList(brokers)
	if len(opts.Brokers) == 0 {
		return errors.New("at least one broker is required")
	}

	opts.ClickHouse = models.SinkConfig{
		Host:     chHost,
		HttpPort: strconv.Itoa(chPort),
		Database: database,
		Username: chUser,
		// el sink guarda el password en base64, igual que la config del pipeline
		Password: base64.StdEncoding.EncodeToString([]byte(chPass)),
	}

	return withSession(ctx, common, func(demo *app.Demo) error {
		return demo.RunWalkthrough(ctx, opts)
	})
}

func runTopics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSetWithEnvPrefix("topics", envPrefix, flag.ExitOnError)
	common := registerCommon(fs)

	var configPath string
	fs.StringVar(&configPath, "config", "config/glassflow/deduplication_pipeline.json", "Path to pipeline configuration file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return withSession(ctx, common, func(demo *app.Demo) error {
		return demo.RunTopics(ctx, configPath)
	})
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSetWithEnvPrefix("history", envPrefix, flag.ExitOnError)
	common := registerCommon(fs)

	var n int
	fs.IntVar(&n, "n", 10, "Number of runs to show")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return withSession(ctx, common, func(demo *app.Demo) error {
		return demo.RunHistory(ctx, n)
	})
}
