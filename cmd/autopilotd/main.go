// Command autopilotd is the AI autopilot core's process entrypoint: it
// wires the phase classifier, ATC controller, rule engine, command
// queue and bridge transport together, exposes the supervisor's HTTP
// control surface, and drives the pipeline from an inbound telemetry
// feed.
//
// Lifecycle (Initialize/Start/Shutdown) is grounded on the teacher's
// cmd/valkyrie/main.go orchestration.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flightcore/copilot/internal/advisory"
	"github.com/flightcore/copilot/internal/atc"
	"github.com/flightcore/copilot/internal/atc/planner"
	"github.com/flightcore/copilot/internal/bridge"
	"github.com/flightcore/copilot/internal/config"
	"github.com/flightcore/copilot/internal/envelope"
	"github.com/flightcore/copilot/internal/flightdata"
	"github.com/flightcore/copilot/internal/phase"
	"github.com/flightcore/copilot/internal/queue"
	"github.com/flightcore/copilot/internal/ruleengine"
	"github.com/flightcore/copilot/internal/supervisor"
	"github.com/flightcore/copilot/internal/terrain"
	"github.com/flightcore/copilot/pkg/utils"
)

var (
	httpAddr    = flag.String("http-addr", ":8093", "ground-station HTTP API address")
	profileDir  = flag.String("profiles", "configs/profiles", "aircraft profile YAML directory")
	aircraftID  = flag.String("aircraft", "C172", "active aircraft profile id")
	plannerURL  = flag.String("planner-url", "http://localhost:8081", "taxi planner base URL")
	advisoryURL = flag.String("advisory-url", "http://localhost:8090", "LLM advisory service base URL")

	bridgeKind   = flag.String("bridge", "websocket", "bridge transport: websocket|serial|mock")
	bridgeWSURL  = flag.String("bridge-ws-url", "ws://localhost:8094/bridge", "websocket bridge URL")
	bridgeSerial = flag.String("bridge-serial-port", "/dev/ttyUSB0", "serial bridge port")
	bridgeBaud   = flag.Int("bridge-serial-baud", 57600, "serial bridge baud rate")

	terrainCSV = flag.String("terrain-csv", "", "optional lat,lon,elevation_ft terrain sample CSV")

	jwtSecretEnv = flag.String("jwt-secret-env", "AUTOPILOT_JWT_SECRET", "environment variable holding the ground-station JWT signing secret")

	targetCruiseAltFt = flag.Float64("cruise-alt-ft", 6500, "target cruise altitude, MSL feet")
	fieldElevationFt  = flag.Float64("field-elev-ft", 0, "departure field elevation, feet")
	destDistNm        = flag.Float64("dest-dist-nm", 0, "destination distance, nm")

	logLevel = flag.String("log-level", "info", "log level: debug|info|warn|error")
)

func main() {
	flag.Parse()
	utils.SetLogLevel(*logLevel)
	logger := utils.WithComponent(nil, "autopilotd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	app, err := initialize(logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize autopilot core")
	}

	if err := app.start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start autopilot core")
	}

	logger.Info("autopilot core operational")

	<-sigCh
	logger.Info("shutdown signal received")
	app.shutdown()
	logger.Info("shutdown complete")
}

// app holds every subsystem constructed by initialize, mirroring the
// teacher's top-level struct-of-subsystems shape.
type app struct {
	registry   *config.Registry
	classifier *phase.Classifier
	atcCtrl    *atc.Controller
	engine     *ruleengine.Engine
	cmdQueue   *queue.Queue
	sup        *supervisor.Supervisor
	liveFeed   *supervisor.Server
	httpServer *http.Server
	advisory   *advisory.Client

	logger *logrus.Entry

	mu      sync.Mutex
	running bool
}

func initialize(logger *logrus.Entry) (*app, error) {
	registry := config.NewRegistry()
	if err := registry.LoadFromStorage(*profileDir); err != nil {
		logger.WithError(err).Warn("no profiles loaded from disk, continuing with none")
	}
	profile, ok := registry.Get(*aircraftID)
	if !ok {
		return nil, fmt.Errorf("aircraft profile %q not found in %s", *aircraftID, *profileDir)
	}
	if err := registry.SetActive(*aircraftID); err != nil {
		return nil, err
	}

	grid, err := buildTerrainGrid(logger)
	if err != nil {
		return nil, err
	}

	transport, err := buildBridgeTransport(logger)
	if err != nil {
		return nil, err
	}

	plannerClient := planner.NewClient(*plannerURL, http.DefaultClient)
	atcCtrl := atc.NewController(plannerClient, utils.WithComponent(nil, "atc"))
	atcCtrl.OnInstruction(func(text string, kind atc.InstructionKind) {
		logger.WithField("kind", kind).Info(text)
	})

	envCalc := envelope.NewCalculator(profile)
	engine := ruleengine.New(profile, envCalc, grid, utils.WithComponent(nil, "ruleengine"))

	classifier := phase.NewClassifier()
	classifier.OnPhaseChange(func(old, new phase.Phase) {
		logger.WithField("from", old.String()).WithField("to", new.String()).Info("phase change")
	})

	limits := queue.LimitsFromProfile(profile)
	cmdQueue := queue.New(transport, limits, queue.Config{}, utils.WithComponent(nil, "queue"))
	cmdQueue.OnCommandExecuted(func(entry queue.LogEntry) {
		logger.WithField("kind", entry.Kind).WithField("wire", entry.Wire).Debug("command executed")
	})
	cmdQueue.OnOverrideChange(func(active []queue.ActiveOverride) {
		logger.WithField("count", len(active)).Info("override set changed")
	})

	navCfg := phase.Config{
		TargetCruiseAltFt: *targetCruiseAltFt,
		FieldElevationFt:  *fieldElevationFt,
		DestDistNm:        *destDistNm,
	}

	fuel := envelope.FuelState{
		FuelOnBoardLb:   profile.Weight.MaxGrossLb - profile.Weight.EmptyLb - profile.Weight.DefaultPayloadLb,
		BurnRateLbPerHr: profile.Weight.FuelLbPerGal * 8, // nominal 8 gal/hr cruise burn
	}

	sup := supervisor.New(classifier, atcCtrl, engine, cmdQueue, navCfg, fuel, utils.WithComponent(nil, "supervisor"))

	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}
	advisoryClient := advisory.NewClient(*advisoryURL, http.DefaultClient, utils.WithComponent(nil, "advisory"))
	httpServer := supervisor.NewServer(sup, advisoryClient, secret, utils.WithComponent(nil, "http"))

	return &app{
		registry:   registry,
		classifier: classifier,
		atcCtrl:    atcCtrl,
		engine:     engine,
		cmdQueue:   cmdQueue,
		sup:        sup,
		liveFeed:   httpServer,
		advisory:   advisoryClient,
		httpServer: &http.Server{Addr: *httpAddr, Handler: httpServer.Router()},
		logger:     logger,
	}, nil
}

func (a *app) start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	go func() {
		a.logger.WithField("addr", *httpAddr).Info("HTTP control surface listening")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()

	go a.runTelemetryLoop(ctx)

	a.running = true
	return nil
}

func (a *app) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("HTTP shutdown error")
	}
	a.running = false
}

// runTelemetryLoop reads newline-delimited JSON telemetry snapshots
// from stdin and drives one supervisor tick per line. Telemetry
// sourcing has no named wire interface in spec §6 (it is the
// "continuous stream" the core is handed, not a collaborator this
// core defines); stdin-NDJSON is the simplest bench driver, with the
// HTTP/websocket live-feed and bridge transport covering every named
// interface instead.
func (a *app) runTelemetryLoop(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		wire, err := flightdata.DecodeSnapshotWire(line)
		if err != nil {
			a.logger.WithError(err).Warn("malformed telemetry line, dropped")
			continue
		}
		snap := wire.ToSnapshot(time.Now())

		out, err := a.sup.Tick(ctx, snap)
		if err != nil {
			a.logger.WithError(err).Error("tick error")
			continue
		}
		a.liveFeed.Broadcast(out)
	}
	if err := scanner.Err(); err != nil {
		a.logger.WithError(err).Error("telemetry stream read error")
	}
}

func buildTerrainGrid(logger *logrus.Entry) (terrain.Grid, error) {
	if *terrainCSV == "" {
		return terrain.ConstantGrid{ElevFt: 0}, nil
	}
	grid, err := terrain.LoadLatLonGridCSV(*terrainCSV, 0.01, 0.01, 0)
	if err != nil {
		return nil, fmt.Errorf("load terrain grid: %w", err)
	}
	logger.WithField("file", *terrainCSV).Info("terrain grid loaded")
	return grid, nil
}

func buildBridgeTransport(logger *logrus.Entry) (queue.Transport, error) {
	switch *bridgeKind {
	case "websocket":
		return bridge.NewWebSocketTransport(*bridgeWSURL, utils.WithComponent(nil, "bridge-ws")), nil
	case "serial":
		return bridge.NewSerialTransport(*bridgeSerial, *bridgeBaud, utils.WithComponent(nil, "bridge-serial")), nil
	case "mock":
		logger.Warn("using mock bridge transport, commands are not delivered anywhere")
		return &bridge.MockTransport{}, nil
	default:
		return nil, fmt.Errorf("unknown bridge kind %q", *bridgeKind)
	}
}

func jwtSecret() ([]byte, error) {
	v := os.Getenv(*jwtSecretEnv)
	if v == "" {
		return nil, fmt.Errorf("environment variable %s must hold the ground-station JWT signing secret", *jwtSecretEnv)
	}
	return []byte(v), nil
}
