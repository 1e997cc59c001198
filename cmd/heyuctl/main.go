// Command heyuctl runs maintenance tasks against a HeyU deployment.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"heyu/internal/audit"
	"heyu/internal/cache"
	"heyu/internal/client"
	"heyu/internal/config"
	"heyu/internal/database"
	"heyu/internal/events"
	"heyu/internal/grpcapi"
	"heyu/internal/redisstore"
	"heyu/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const usage = `usage: heyuctl <command> [flags]

commands:
  clear-bookings   delete every booking from the configured store
  export           write all bookings to an .xlsx file
  slots            print the available start times of a service on a date
`

type bookingStore interface {
	service.BookingStore
	service.ServiceStore
}

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "clear-bookings":
		err = clearBookings(ctx, os.Args[2:], &logger)
	case "export":
		err = export(ctx, os.Args[2:], &logger)
	case "slots":
		err = slots(ctx, os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func clearBookings(ctx context.Context, args []string, logger *zerolog.Logger) error {
	fs := flag.NewFlagSet("clear-bookings", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("HEYU_CONFIG_PATH"), "path to config.yaml")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	_ = fs.Parse(args)

	if !*yes && !confirm(os.Stdin, os.Stdout, "Delete ALL bookings? [y/N] ") {
		logger.Info().Msg("Aborted")
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, rdb, closeFn, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	bookings := service.NewBookingService(st, st, nil, events.NewEventBus(logger), false, logger)
	n, err := bookings.ClearAll(ctx)
	if err != nil {
		return err
	}
	if rdb != nil && cfg.AvailabilityCacheTTL() > 0 {
		if err := cache.NewAvailability(rdb, cfg.AvailabilityCacheTTL()).InvalidateAll(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to invalidate availability cache")
		}
	}
	logger.Info().Int64("deleted", n).Msg("Bookings cleared")
	return nil
}

func export(ctx context.Context, args []string, logger *zerolog.Logger) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("HEYU_CONFIG_PATH"), "path to config.yaml")
	out := fs.String("o", "", "output .xlsx file (default bookings_<timestamp>.xlsx)")
	apiURL := fs.String("api", os.Getenv("HEYU_API_URL"), "export through a running server instead of the store")
	_ = fs.Parse(args)

	if *out == "" {
		*out = fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("20060102_150405"))
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	if *apiURL != "" {
		if err := client.New(*apiURL).ExportBookings(ctx, f); err != nil {
			return err
		}
		logger.Info().Str("file", *out).Msg("Bookings exported")
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, _, closeFn, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	bookings, err := st.ListBookings(ctx)
	if err != nil {
		return err
	}
	if err := audit.WriteBookings(f, bookings); err != nil {
		return err
	}
	logger.Info().Str("file", *out).Int("count", len(bookings)).Msg("Bookings exported")
	return nil
}

func slots(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("slots", flag.ExitOnError)
	date := fs.String("date", "", "date as YYYY-MM-DD")
	serviceID := fs.Int64("service", 0, "service id; 0 prints the default grid")
	apiURL := fs.String("api", getenv("HEYU_API_URL", "http://localhost:3001"), "HeyU API base url")
	grpcAddr := fs.String("grpc", "", "query the gRPC endpoint at this address instead of HTTP")
	redisAddr := fs.String("redis", "", "cache HTTP lookups in this Redis")
	_ = fs.Parse(args)

	if strings.TrimSpace(*date) == "" {
		return fmt.Errorf("-date is required")
	}

	if *grpcAddr != "" {
		c, err := grpcapi.Dial(*grpcAddr)
		if err != nil {
			return err
		}
		defer c.Close()
		var list []string
		if *serviceID > 0 {
			list, err = c.AvailableSlots(ctx, *date, *serviceID)
		} else {
			list, err = c.DefaultSlots(ctx, *date)
		}
		if err != nil {
			return err
		}
		printSlots(w, *date, "", list)
		return nil
	}

	c := client.New(*apiURL)
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer rdb.Close()
		c.UseRedisCache(rdb, time.Minute)
	}
	resp, err := c.AvailableSlots(ctx, *date, *serviceID)
	if err != nil {
		return err
	}
	name := ""
	if resp.Service != nil {
		name = resp.Service.NameEn
	}
	printSlots(w, resp.Date, name, resp.TimeSlots)
	return nil
}

func printSlots(w io.Writer, date, service string, list []string) {
	if service != "" {
		fmt.Fprintf(w, "%s (%s)\n", date, service)
	} else {
		fmt.Fprintln(w, date)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "  no available slots")
		return
	}
	for _, s := range list {
		fmt.Fprintf(w, "  %s\n", s)
	}
}

func openStore(cfg *config.Config, logger *zerolog.Logger) (bookingStore, *redis.Client, func(), error) {
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}
	closeRedis := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}

	if cfg.Storage.Driver == "redis" {
		if rdb == nil {
			return nil, nil, nil, fmt.Errorf("storage.driver is redis but redis.address is empty")
		}
		return redisstore.New(rdb, logger), rdb, closeRedis, nil
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		closeRedis()
		return nil, nil, nil, fmt.Errorf("open db: %w", err)
	}
	return db, rdb, func() {
		_ = db.Close()
		closeRedis()
	}, nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
