// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcodagnone/tarifa/estimator"
	"github.com/jcodagnone/tarifa/journal"
	"github.com/jcodagnone/tarifa/mapview"
	"github.com/jcodagnone/tarifa/pricing"
	"github.com/jcodagnone/tarifa/spatial"
	"github.com/jcodagnone/tarifa/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the price estimator web server",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c := loadConfig()

		db, repo, err := c.openJournal()
		if err != nil {
			return err
		}

		var recorder estimator.Recorder

		if db != nil {
			defer db.Close()

			recorder = journal.NewRecorder(repo)

			fmt.Printf("📒 Journal: %s\n", c.DbPath)
		}

		httpClient := c.httpClient()
		quoter := pricing.NewClient(c.Endpoint, httpClient)
		store := estimator.NewStore(quoter, recorder)

		maps := mapview.New(mapview.Options{
			LoaderURL:   cfg.GetString("map-loader"),
			ContainerID: cfg.GetString("map-container"),
			Center: spatial.Point{
				Lat: cfg.GetFloat64("map-center-lat"),
				Lng: cfg.GetFloat64("map-center-lng"),
			},
			Zoom:   cfg.GetInt("map-zoom"),
			Probe:  cfg.GetBool("map-probe"),
			Client: httpClient,
		})

		server := web.NewServer(store, quoter, maps, web.Options{
			Listen:      cfg.GetString("listen"),
			ContainerID: cfg.GetString("map-container"),
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("💰 Pricing service: %s\n", quoter.Endpoint())
		fmt.Printf("📍 Open http://%s in your browser\n", cfg.GetString("listen"))

		if err := server.Run(ctx); err != nil {
			return fmt.Errorf("serving: %w", err)
		}

		log.Println("Server exited")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("listen", web.DefaultListen, "Address to listen on")
	flags.String("map-loader", mapview.DefaultLoaderURL, "URL of the 2GIS map loader (empty disables the map)")
	flags.String("map-container", mapview.DefaultContainerID, "Id of the element the map mounts on")
	flags.Bool("map-probe", false, "Check that the map loader is reachable before rendering the map")
	flags.Float64("map-center-lat", mapview.DefaultCenter.Lat, "Initial map center latitude")
	flags.Float64("map-center-lng", mapview.DefaultCenter.Lng, "Initial map center longitude")
	flags.Int("map-zoom", mapview.DefaultZoom, "Initial map zoom")
}
