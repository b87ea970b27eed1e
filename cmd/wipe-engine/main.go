// Command wipe-engine is the process entrypoint: it parses the wipe
// configuration, opens the shared Entropy Source, opens the target devices
// named by -devices, and hands both to a Supervisor.
//
// Grounded on cmd/game-server/main.go's main(): flag/env-driven startup,
// a gin router started in the background, and a signal-triggered graceful
// shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"wipeengine/internal/eventlog"
	"wipeengine/internal/executor"
	"wipeengine/internal/supervisor"
	"wipeengine/internal/wipe"
	"wipeengine/pkg/entropy"
)

func main() {
	var (
		devices     = flag.String("devices", "", "comma-separated list of block device paths to wipe")
		method      = flag.String("method", "dodshort", "wipe method name (see internal/method for the full list)")
		prngName    = flag.String("prng", "isaac", "PRNG variant backing random passes")
		rounds      = flag.Int("rounds", 1, "number of times to repeat the method's pass sequence")
		verifyFlag  = flag.String("verify", "last", "verify policy: none, last, or all")
		syncEvery   = flag.Int("sync", 0, "fsync every N chunks written (0 = one final sync per pass)")
		finalBlank  = flag.Bool("final-blank", false, "append a final all-zero pass when the method allows it")
		autonuke    = flag.Bool("autonuke", false, "skip interactive confirmation and start immediately")
		joinTimeout = flag.Duration("join-timeout", 60*time.Second, "how long to wait for a worker to exit after cancellation")
		httpAddr    = flag.String("http", "", "address to serve the progress HTTP surface on (empty disables it)")
		kafkaBroker = flag.String("kafka-brokers", "", "comma-separated Kafka broker list for the event sink (empty disables it)")
		kafkaTopic  = flag.String("kafka-topic", "wipeengine.events", "Kafka topic for lifecycle events")
	)
	flag.Parse()

	if !*autonuke {
		if !confirm(*devices) {
			log.Println("wipe-engine: aborted, no devices touched")
			os.Exit(supervisor.ExitOK)
		}
	}

	verifyPolicy, err := wipe.ParseVerifyPolicy(*verifyFlag)
	if err != nil {
		log.Printf("wipe-engine: %v", err)
		os.Exit(supervisor.ExitInvalidConfig)
	}

	cfg := wipe.Config{
		Method:      *method,
		PRNG:        *prngName,
		Rounds:      *rounds,
		Verify:      verifyPolicy,
		Sync:        *syncEvery,
		FinalBlank:  *finalBlank,
		Autonuke:    *autonuke,
		JoinTimeout: *joinTimeout,
	}

	entropySrc, err := entropy.Open()
	if err != nil {
		log.Printf("wipe-engine: entropy source unavailable: %v", err)
		os.Exit(supervisor.ExitInsufficientPriv)
	}

	targets, err := openTargets(strings.Split(*devices, ","))
	if err != nil {
		log.Printf("wipe-engine: %v", err)
		os.Exit(supervisor.ExitInvalidConfig)
	}
	if len(targets) == 0 {
		log.Println("wipe-engine: no devices given, nothing to do")
		os.Exit(supervisor.ExitInvalidConfig)
	}

	sink := buildEventSink(*kafkaBroker, *kafkaTopic)
	if closer, ok := sink.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	sup := supervisor.New(cfg, entropySrc, sink)
	stopSignals := sup.InstallSignalHandler()
	defer stopSignals()

	if *httpAddr != "" {
		go func() {
			if err := sup.Router().Run(*httpAddr); err != nil {
				log.Printf("wipe-engine: progress http server exited: %v", err)
			}
		}()
	}

	summaries, exitCode := sup.Run(context.Background(), targets)
	fmt.Print(supervisor.SummaryTable(summaries))
	os.Exit(exitCode)
}

// openTargets opens every device path as a raw block device and queries its
// total size. The sector size is not queried from the device: every target
// gets logicalSectorSize.
func openTargets(paths []string) ([]supervisor.DeviceTarget, error) {
	targets := make([]supervisor.DeviceTarget, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		dev, err := executor.OpenDevice(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}

		size, err := dev.Size()
		if err != nil {
			return nil, fmt.Errorf("querying size of %s: %w", path, err)
		}

		targets = append(targets, supervisor.DeviceTarget{
			DevicePath: path,
			Device:     dev,
			SizeBytes:  size,
			SectorSize: logicalSectorSize,
		})
	}
	return targets, nil
}

// logicalSectorSize is the fallback sector size used when the underlying
// device node does not expose a way to query it through this package's
// minimal BlockDevice surface; 512 bytes matches the near-universal legacy
// sector size and still yields a valid power-of-two buffer alignment for
// 4Kn devices.
const logicalSectorSize = 512

// buildEventSink wires a Kafka-backed EventSink when brokers are
// configured, otherwise falls back to one that discards every event.
func buildEventSink(brokers, topic string) supervisor.EventSink {
	if strings.TrimSpace(brokers) == "" {
		return supervisor.NoopEventSink()
	}

	cfg := eventlog.DefaultKafkaSinkConfig()
	cfg.Brokers = strings.Split(brokers, ",")
	cfg.Topic = topic

	sink, err := eventlog.NewKafkaSink(cfg)
	if err != nil {
		log.Printf("wipe-engine: kafka event sink unavailable, falling back to noop: %v", err)
		return supervisor.NoopEventSink()
	}
	return sink
}

// confirm prints the classic "this will destroy data" prompt and reads a
// literal "yes" from stdin, mirroring original_source's interactive
// confirmation gate ahead of any autonuke bypass.
func confirm(devices string) bool {
	fmt.Printf("About to wipe: %s\nThis will permanently destroy all data on the listed devices.\nType 'yes' to continue: ", devices)
	var answer string
	fmt.Scanln(&answer)
	return strings.TrimSpace(strings.ToLower(answer)) == "yes"
}
