package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/store"
)

// importPaths names the export files to load. Empty paths are skipped.
type importPaths struct {
	Places       string
	TradeAreas   string
	HomeZipcodes string
	Zipcodes     string
}

func (p importPaths) empty() bool {
	return p.Places == "" && p.TradeAreas == "" && p.HomeZipcodes == "" && p.Zipcodes == ""
}

// importCounts reports rows written per record kind.
type importCounts struct {
	Places       int64
	TradeAreas   int64
	HomeZipcodes int64
	Zipcodes     int64
}

var (
	importFlags   importPaths
	importMigrate bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import place, trade-area, home-zipcode and zipcode exports into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if importFlags.empty() {
			return eris.New("at least one of --places, --trade-areas, --home-zipcodes or --zipcodes is required")
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		if importMigrate {
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate")
			}
		}

		n, err := importFiles(ctx, st, importFlags)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int64("places", n.Places),
			zap.Int64("trade_areas", n.TradeAreas),
			zap.Int64("home_zipcodes", n.HomeZipcodes),
			zap.Int64("zipcodes", n.Zipcodes),
		)
		return nil
	},
}

// importFiles parses every named file concurrently, then writes them to st
// places first so overlays always refer to a stored place.
func importFiles(ctx context.Context, st store.Store, paths importPaths) (importCounts, error) {
	var (
		places       []model.Place
		tradeAreas   []model.TradeArea
		homeZipcodes []model.HomeZipcodes
		zipcodes     []model.Zipcode
	)

	g := new(errgroup.Group)
	if paths.Places != "" {
		g.Go(func() (err error) {
			places, err = readRecords[model.Place](paths.Places)
			return err
		})
	}
	if paths.TradeAreas != "" {
		g.Go(func() (err error) {
			tradeAreas, err = readRecords[model.TradeArea](paths.TradeAreas)
			return err
		})
	}
	if paths.HomeZipcodes != "" {
		g.Go(func() (err error) {
			homeZipcodes, err = readRecords[model.HomeZipcodes](paths.HomeZipcodes)
			return err
		})
	}
	if paths.Zipcodes != "" {
		g.Go(func() (err error) {
			zipcodes, err = readRecords[model.Zipcode](paths.Zipcodes)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return importCounts{}, eris.Wrap(err, "import: parse")
	}

	var (
		n   importCounts
		err error
	)
	if len(places) > 0 {
		if n.Places, err = st.ImportPlaces(ctx, places); err != nil {
			return n, eris.Wrap(err, "import: places")
		}
	}
	if len(zipcodes) > 0 {
		if n.Zipcodes, err = st.ImportZipcodes(ctx, zipcodes); err != nil {
			return n, eris.Wrap(err, "import: zipcodes")
		}
	}
	if len(tradeAreas) > 0 {
		if n.TradeAreas, err = st.ImportTradeAreas(ctx, tradeAreas); err != nil {
			return n, eris.Wrap(err, "import: trade areas")
		}
	}
	if len(homeZipcodes) > 0 {
		if n.HomeZipcodes, err = st.ImportHomeZipcodes(ctx, homeZipcodes); err != nil {
			return n, eris.Wrap(err, "import: home zipcodes")
		}
	}
	return n, nil
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importFlags.Places, "places", "", "places export (.json, .yaml)")
	f.StringVar(&importFlags.TradeAreas, "trade-areas", "", "trade areas export (.json, .yaml)")
	f.StringVar(&importFlags.HomeZipcodes, "home-zipcodes", "", "home zipcodes export (.json, .yaml)")
	f.StringVar(&importFlags.Zipcodes, "zipcodes", "", "zipcode boundaries export (.json, .yaml)")
	f.BoolVar(&importMigrate, "migrate", false, "create the schema before importing")
	rootCmd.AddCommand(importCmd)
}
