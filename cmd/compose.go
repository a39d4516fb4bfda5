package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/placemap/internal/layer"
	"github.com/sells-group/placemap/internal/viewer"
)

// composeRequest is the view state applied before composing.
type composeRequest struct {
	DataType     string
	TradeAreas   []string
	HomeZipcodes string
	RadiusMeters float64
	Categories   []string
	Nearby       bool
	Levels       []int
}

var (
	composeFlags  composeRequest
	composeOut    string
	composeLegend bool
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose map layers for a view state and print them as GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initMapEnv(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer env.Close()

		if !cmd.Flags().Changed("radius") {
			composeFlags.RadiusMeters = cfg.Map.DefaultRadiusMeters
		}
		if err := applyCompose(ctx, env.Controller, composeFlags); err != nil {
			return err
		}

		w := io.Writer(os.Stdout)
		if composeOut != "" {
			f, err := os.Create(composeOut)
			if err != nil {
				return eris.Wrap(err, "create output")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		var out any = layer.Views(env.Controller.Layers())
		if composeLegend {
			out = env.Controller.Legend()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(out), "write layers")
	},
}

// applyCompose drives ctrl into the requested state. The data type is set
// before overlays are fetched so its transition cannot drop them.
func applyCompose(ctx context.Context, ctrl *viewer.Controller, req composeRequest) error {
	if err := ctrl.SetFilters(layer.Filters{
		RadiusMeters:     req.RadiusMeters,
		Categories:       req.Categories,
		ShowNearbyPlaces: req.Nearby,
	}); err != nil {
		return eris.Wrap(err, "compose: filters")
	}

	if req.DataType != "" {
		t, err := layer.ParseType(req.DataType)
		if err != nil {
			return eris.Wrap(err, "compose: data type")
		}
		if err := ctrl.SetSelectedDataType(t); err != nil {
			return eris.Wrap(err, "compose: data type")
		}
	}

	if len(req.Levels) > 0 {
		ctrl.SetAllLevels(false)
		for _, l := range req.Levels {
			if err := ctrl.SetLevelSelected(l, true); err != nil {
				return eris.Wrapf(err, "compose: level %d", l)
			}
		}
	}

	for _, id := range req.TradeAreas {
		if _, err := ctrl.ToggleTradeArea(ctx, id); err != nil {
			return eris.Wrapf(err, "compose: trade area %s", id)
		}
	}
	if req.HomeZipcodes != "" {
		if _, err := ctrl.ToggleHomeZipcodes(ctx, req.HomeZipcodes); err != nil {
			return eris.Wrapf(err, "compose: home zipcodes %s", req.HomeZipcodes)
		}
	}
	return nil
}

func init() {
	f := composeCmd.Flags()
	f.StringVar(&composeFlags.DataType, "data-type", "", "selected overlay type (trade-area, home-zipcodes)")
	f.StringSliceVar(&composeFlags.TradeAreas, "trade-area", nil, "place ids whose trade areas to add")
	f.StringVar(&composeFlags.HomeZipcodes, "home-zipcodes", "", "place id whose home zipcodes to add")
	f.Float64Var(&composeFlags.RadiusMeters, "radius", 0, "nearby radius in meters (default from config)")
	f.StringSliceVar(&composeFlags.Categories, "category", nil, "categories of nearby places to show")
	f.BoolVar(&composeFlags.Nearby, "nearby", false, "show nearby places")
	f.IntSliceVar(&composeFlags.Levels, "levels", nil, "trade-area levels to show (default all)")
	f.StringVarP(&composeOut, "out", "o", "", "write to file instead of stdout")
	f.BoolVar(&composeLegend, "legend", false, "print the legend instead of the layers")
	rootCmd.AddCommand(composeCmd)
}
