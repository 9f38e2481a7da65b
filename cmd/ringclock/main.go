// ringclock — часы на кольце светодиодов: время по NTP/NMEA, кадр на границе каждой секунды.
//
// Использование:
//
//	ringclock -config ringclock.yml           — запуск (по умолчанию ringclock.yml, если есть)
//	ringclock -strip console -verbose         — вывод кольца в терминал, строка на каждый кадр
//	ringclock -list-ports                     — список последовательных портов и выход
//
// SIGHUP перечитывает конфиг и применяет секцию display; SIGINT/SIGTERM гасят ленту и завершают.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shiwa/ringclock/internal/clockselect"
	"github.com/shiwa/ringclock/internal/config"
	"github.com/shiwa/ringclock/internal/logger"
	"github.com/shiwa/ringclock/internal/monotonic"
	"github.com/shiwa/ringclock/internal/source"
	"github.com/shiwa/ringclock/internal/strip"
	"github.com/shiwa/ringclock/internal/telemetry"
	"github.com/shiwa/ringclock/pkg/ringclock"
)

const defaultConfigPath = "ringclock.yml"

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигу (по умолчанию "+defaultConfigPath+")")
	driver := flag.String("strip", "", "драйвер ленты: console, adalight, apa102 (переопределяет config)")
	listPorts := flag.Bool("list-ports", false, "показать последовательные порты и выйти")
	quiet := flag.Bool("quiet", false, "меньше вывода")
	verbose := flag.Bool("verbose", false, "строка лога на каждый кадр")
	flag.Parse()

	logger.Quiet = *quiet
	logger.Verbose = *verbose

	if *listPorts {
		ports, err := strip.ListPorts()
		if err != nil {
			log.Fatalf("список портов: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	path := *configPath
	cfg, err := loadConfig(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *driver != "" {
		cfg.Strip.Driver = *driver
	}

	if err := run(cfg, path); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// run открывает источники и ленту, запускает цикл и закрывает всё при выходе.
func run(cfg *config.Config, path string) error {
	client, err := buildElection(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	elements := cfg.FaceTheme().Elements
	dev, err := strip.Open(cfg.Strip, elements, os.Stdout)
	if err != nil {
		return fmt.Errorf("лента %s: %w", cfg.Strip.Driver, err)
	}
	defer dev.Close()

	var metrics *telemetry.Metrics
	if cfg.Metrics.Listen != "" {
		metrics = serveMetrics(cfg.Metrics.Listen)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	reload := make(chan *config.Config, 1)
	go func() {
		for sig := range sigCh {
			if sig != syscall.SIGHUP {
				logger.Info("получен сигнал %v, завершение...", sig)
				cancel()
				return
			}
			next, err := loadConfig(path)
			if err != nil {
				logger.Error("перечитывание конфига: %v", err)
				continue
			}
			// в канале держим только последний конфиг
			select {
			case <-reload:
			default:
			}
			reload <- next
		}
	}()

	logger.Debug("CLOCK_MONOTONIC granularity %d ns", monotonic.GranularityNs())
	deps := ringclock.Deps{
		Counter: monotonic.NewSystem(),
		Client:  client,
		Online:  source.ConnectivityFor(cfg.Time.PrimarySources, cfg.Time.SecondarySources),
		Sink:    dev,
		Metrics: metrics,
		Reload:  reload,
	}
	if err := ringclock.Run(ctx, cfg, deps); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadConfig читает конфиг; без явного пути и без файла по умолчанию — Default().
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = defaultConfigPath
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// buildElection создаёт клиентов из primary/secondary; неудачные пропускаются с ошибкой в логе.
func buildElection(cfg *config.Config) (*clockselect.Election, error) {
	build := func(list []config.SourceConfig) []source.Client {
		var out []source.Client
		for _, c := range list {
			if c.Disable {
				continue
			}
			cl, err := source.NewFromConfig(c)
			if err != nil {
				logger.Error("источник %s: %v", c.Protocol, err)
				continue
			}
			out = append(out, cl)
		}
		return out
	}
	e := clockselect.NewElection(build(cfg.Time.PrimarySources), build(cfg.Time.SecondarySources))
	if e.Len() == 0 {
		return nil, fmt.Errorf("нет ни одного доступного источника времени")
	}
	return e, nil
}

// serveMetrics регистрирует метрики в отдельном реестре и отдаёт их на /metrics.
func serveMetrics(addr string) *telemetry.Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := telemetry.InitMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		logger.Info("metrics на %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics: %v", err)
		}
	}()
	return m
}
