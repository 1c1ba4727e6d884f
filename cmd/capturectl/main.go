package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/app"
	"github.com/vladislavdragonenkov/mealshare/internal/service/lifecycle"
)

const defaultTimeout = 60 * time.Second

// capturectl запускает capture-or-void решение для событий, чей дедлайн
// уже наступил. Используется внешним планировщиком или вручную оператором.
func main() {
	var (
		eventID string
		limit   int
		dryRun  bool
	)

	flag.StringVar(&eventID, "event", "", "process a single event by ID (default: all due events)")
	flag.IntVar(&limit, "limit", 100, "max number of due events per run")
	flag.BoolVar(&dryRun, "dry-run", false, "list due events without processing")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel)

	cfg := app.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fail("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	deps, err := app.NewDependencies(ctx, cfg, log.WithField("component", "capturectl"))
	if err != nil {
		fail("init dependencies: %v", err)
	}
	defer deps.Close()

	serviceOpts := []lifecycle.Option{
		lifecycle.WithLogger(deps.Logger),
	}
	if deps.Producer != nil {
		serviceOpts = append(serviceOpts, lifecycle.WithPublisher(deps.Producer))
	}
	if deps.Prices != nil {
		serviceOpts = append(serviceOpts, lifecycle.WithPriceInvalidator(deps.Prices))
	}
	service := lifecycle.NewService(deps.Store, deps.Events, deps.Orders, deps.Gateway, serviceOpts...)

	switch {
	case dryRun:
		due, err := deps.Events.ListDueForCutoff(ctx, time.Now().UTC(), limit)
		if err != nil {
			fail("list due events: %v", err)
		}
		if len(due) == 0 {
			fmt.Println("no due events")
			return
		}
		for _, event := range due {
			fmt.Printf("%s cutoff=%s status=%s orders=%d/%d\n",
				event.ID, event.CutoffAt.Format(time.RFC3339), event.Status,
				event.OrdersCount, event.MinOrders)
		}
	case strings.TrimSpace(eventID) != "":
		if err := service.OnCutoffReached(ctx, strings.TrimSpace(eventID)); err != nil {
			fail("process event %s: %v", eventID, err)
		}
		fmt.Printf("cutoff processed: %s\n", eventID)
	default:
		processed, err := service.RunDueCutoffs(ctx, time.Now().UTC(), limit)
		if err != nil {
			fail("processed %d events, first error: %v", processed, err)
		}
		fmt.Printf("cutoff processed for %d events\n", processed)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
