package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronedispatch/app"
	"github.com/kilianp07/dronedispatch/core/dispatch"
	"github.com/kilianp07/dronedispatch/core/manifest"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/infra/logger"
)

var (
	ordersPath string
	orders     []string
	serve      bool
	verbose    bool
	watch      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch packages to the drone fleet",
	Long: `Builds the fleet and network from the configuration, submits the orders
given with --orders and --order, and waits until every package is delivered.
With --serve the engine keeps running until SIGINT or SIGTERM.`,
	Example: "  dronedispatch run --order 4.0:Downtown --order 2:Airport --watch",
	RunE:    runDispatch,
}

func init() {
	runCmd.Flags().StringVar(&ordersPath, "orders", "", "order manifest (YAML or JSON)")
	runCmd.Flags().StringArrayVar(&orders, "order", nil, "order as <weight>:<destination>, repeatable")
	runCmd.Flags().BoolVar(&serve, "serve", false, "keep running until interrupted")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log the fleet state with every update")
	runCmd.Flags().BoolVarP(&watch, "watch", "w", false, "print every status update")
	rootCmd.AddCommand(runCmd)
}

func runDispatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	reqs, err := collectOrders(cfg.Network.Depot)
	if err != nil {
		return err
	}

	svc, err := app.New(cfg, app.Options{Verbose: verbose})
	if err != nil {
		return err
	}
	log := logger.New("main")
	svc.StartMetrics(ctx)
	var watched <-chan struct{}
	if watch {
		watched = printUpdates(cmd.OutOrStdout(), svc.Bus.Subscribe())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Dispatch.ShutdownGrace()+time.Second)
		defer cancel()
		if err := svc.Close(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
		if watched != nil {
			<-watched
		}
		printState(cmd, svc)
	}()

	if err := svc.SubmitAll(reqs); err != nil {
		return err
	}
	if serve {
		<-ctx.Done()
		return nil
	}
	if err := svc.Engine.WaitIdle(ctx); err != nil {
		log.Warnf("interrupted before all packages were delivered")
	}
	return nil
}

func collectOrders(depot model.Location) ([]*model.Request, error) {
	var m manifest.Manifest
	if ordersPath != "" {
		loaded, err := manifest.Load(ordersPath)
		if err != nil {
			return nil, err
		}
		m = loaded
	}
	for _, s := range orders {
		o, err := manifest.ParseOrder(s)
		if err != nil {
			return nil, err
		}
		m.Orders = append(m.Orders, o)
	}
	return m.Requests(depot), nil
}

// printUpdates writes the status line of every notification received on
// updates until the channel is closed, then closes the returned channel.
func printUpdates(out io.Writer, updates <-chan dispatch.Notification) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := range updates {
			fmt.Fprintf(out, "[%d] %s\n", n.Seq, n.Message)
		}
	}()
	return done
}

func printState(cmd *cobra.Command, svc *app.Service) {
	st := svc.Engine.Snapshot()
	out := cmd.OutOrStdout()
	if last := svc.Tracker.Latest(); last.Seq > 0 {
		fmt.Fprintf(out, "Last update #%d: %s (%d updates)\n", last.Seq, last.Message, svc.Tracker.Seen())
	}
	fmt.Fprintln(out, "Drones:")
	for _, c := range st.Carriers {
		fmt.Fprintf(out, "  %s\n", c)
	}
	fmt.Fprintf(out, "Delivered: %d, in flight: %d, pending: %d\n", len(st.Delivered), len(st.Assigned), len(st.Pending))
	for _, r := range st.Pending {
		fmt.Fprintf(out, "  %s (%.1fkg) to %s - %s\n", r.ID, r.Weight, r.Destination, r.Status)
	}
}
