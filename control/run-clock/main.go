package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrockway/memlcd-clock/control/clock"
	"github.com/jrockway/memlcd-clock/control/config"
	"github.com/jrockway/memlcd-clock/control/power"
	"github.com/jrockway/memlcd-clock/control/rtc"
	"github.com/jrockway/memlcd-clock/control/scene"
	"github.com/jrockway/memlcd-clock/control/screen"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var (
	configFile = flag.String("config", "", "YAML config file; CLOCK_* environment variables override it")
	setRTC     = flag.Bool("set-rtc", false, "load the system time into the DS3231 and exit")
)

func openScreen(cfg *config.Config) *screen.Screen {
	if cfg.SPI == "" {
		log.Printf("no spi port configured; running with the preview display only")
		s, err := screen.New(nil, nil, cfg.Width, cfg.Height)
		if err != nil {
			log.Fatalf("init preview screen: %v", err)
		}
		return s
	}
	port, err := spireg.Open(cfg.SPI)
	if err != nil {
		log.Fatalf("open spi port %q: %v", cfg.SPI, err)
	}
	conn, err := port.Connect(physic.Frequency(cfg.SPIHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		log.Fatalf("connect to display on %q: %v", cfg.SPI, err)
	}
	cs := gpioreg.ByName(cfg.ChipSelect)
	if cs == nil {
		log.Fatalf("no gpio named %q for the display chip select", cfg.ChipSelect)
	}
	s, err := screen.New(conn, cs, cfg.Width, cfg.Height)
	if err != nil {
		log.Fatalf("init screen: %v", err)
	}
	return s
}

func openDS3231(cfg *config.Config, loc *time.Location) *rtc.DS3231 {
	bus, err := i2creg.Open(cfg.I2C)
	if err != nil {
		log.Fatalf("open i2c bus %q: %v", cfg.I2C, err)
	}
	return rtc.NewDS3231(bus, loc)
}

func main() {
	flag.Parse()
	if _, err := host.Init(); err != nil {
		log.Fatalf("init periph.io: %v", err)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	loc := cfg.TimeLocation()

	if *setRTC {
		if err := openDS3231(cfg, loc).Set(time.Now()); err != nil {
			log.Fatalf("set rtc: %v", err)
		}
		log.Printf("rtc set")
		return
	}

	if cfg.Chrony != "" {
		tracking, err := rtc.CheckSync(cfg.Chrony)
		if err != nil {
			log.Fatalf("check chrony: %v", err)
		}
		log.Printf("system clock synchronized to %s at stratum %d", rtc.IntRefID(tracking.RefID), tracking.Stratum)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var source clock.Source
	switch cfg.Source {
	case config.SourceDS3231:
		source = openDS3231(cfg, loc)
	case config.SourceGPSD:
		gps := rtc.NewGPSD(cfg.GPSD, loc)
		go gps.Watch(ctx)
		source = gps
	default:
		source = rtc.NewSystem(loc)
	}

	display := openScreen(cfg)
	if err := display.Clear(); err != nil {
		log.Fatalf("clear display: %v", err)
	}

	httpDoneCh := make(chan error)
	var httpServer *http.Server
	if cfg.Bind != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/display.png", http.StatusFound)
		})
		mux.Handle("/display.png", display)
		mux.Handle("/metrics", promhttp.Handler())
		httpServer = &http.Server{Addr: cfg.Bind, Handler: mux}
		go func() {
			log.Printf("http server listening on %s", httpServer.Addr)
			err := httpServer.ListenAndServe()
			select {
			case httpDoneCh <- err:
			case <-ctx.Done():
			}
			close(httpDoneCh)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	layout := scene.DefaultLayout()
	layout.Width, layout.Height = cfg.Width, cfg.Height
	cl := clock.New(scene.New(layout), display)
	sched := clock.NewScheduler(cl, source, power.Delay{}, clock.WithInterval(cfg.Interval), clock.WithPulses(cfg.Pulses))
	loopDoneCh := make(chan error)
	go func() {
		err := sched.Run(ctx)
		select {
		case loopDoneCh <- err:
		case <-ctx.Done():
		}
		close(loopDoneCh)
	}()

	// A clock showing the wrong time is worse than one showing nothing, so everything here
	// ends the program.
	select {
	case err := <-httpDoneCh:
		log.Printf("http server died: %v", err)
		httpServer = nil
	case err := <-loopDoneCh:
		log.Printf("clock loop died: %v", err)
	case <-sigCh:
		log.Printf("interrupt")
	}
	signal.Stop(sigCh)
	cancel()
	if httpServer != nil {
		tctx, c := context.WithTimeout(context.Background(), time.Second)
		httpServer.Shutdown(tctx)
		c()
	}
	os.Exit(1)
}
