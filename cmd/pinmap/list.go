package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kass/go-pinmap/pkg/geo"
	"github.com/kass/go-pinmap/pkg/models"
	"github.com/kass/go-pinmap/pkg/pins"
	"github.com/kass/go-pinmap/pkg/session"
	"github.com/spf13/cobra"
)

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "List pins",
	Long: `Fetch every pin from the service and print them. Results can be narrowed to a
bounding box, a radius around a point, or the k pins nearest to a point.`,
	Args: cobra.NoArgs,
	RunE: runWithApp(false, runPins),
}

type pinQuery struct {
	minLat, maxLat, minLon, maxLon float64
	lat, lon, radius               float64
	nearest                        int
	limit                          int
	json                           bool
}

var listQuery pinQuery

func init() {
	f := pinsCmd.Flags()
	f.Float64Var(&listQuery.minLat, "min-lat", 0, "Minimum latitude (box query)")
	f.Float64Var(&listQuery.maxLat, "max-lat", 0, "Maximum latitude (box query)")
	f.Float64Var(&listQuery.minLon, "min-lon", 0, "Minimum longitude (box query)")
	f.Float64Var(&listQuery.maxLon, "max-lon", 0, "Maximum longitude (box query)")
	f.Float64Var(&listQuery.lat, "lat", 0, "Center latitude (radius/nearest query)")
	f.Float64Var(&listQuery.lon, "lon", 0, "Center longitude (radius/nearest query)")
	f.Float64VarP(&listQuery.radius, "radius", "r", 0, "Radius in km (radius query)")
	f.IntVarP(&listQuery.nearest, "nearest", "k", 0, "Number of nearest pins (nearest query)")
	f.IntVar(&listQuery.limit, "limit", 100, "Maximum number of results to display")
	f.BoolVar(&listQuery.json, "json", false, "Output results as JSON")
}

func (q pinQuery) box() bool {
	return q.minLat != 0 || q.maxLat != 0 || q.minLon != 0 || q.maxLon != 0
}

func (q pinQuery) center() models.Location {
	return models.Location{Lat: q.lat, Lon: q.lon}
}

// selectPins applies the query to the collection
func selectPins(c *pins.Collection, q pinQuery) ([]models.Pin, error) {
	var results []models.Pin
	switch {
	case q.box():
		if q.minLat > q.maxLat || q.minLon > q.maxLon {
			return nil, errors.New("box query requires --min-lat <= --max-lat and --min-lon <= --max-lon")
		}
		box := models.BoundingBox{
			BottomLeft: models.Location{Lat: q.minLat, Lon: q.minLon},
			TopRight:   models.Location{Lat: q.maxLat, Lon: q.maxLon},
		}
		var err error
		if results, err = c.Within(box); err != nil {
			return nil, err
		}
	case q.radius > 0:
		results = c.Near(q.center(), q.radius)
	case q.nearest > 0:
		results = c.NearestN(q.center(), q.nearest)
	default:
		results = c.All()
	}

	if q.limit > 0 && len(results) > q.limit {
		results = results[:q.limit]
	}
	return results, nil
}

func runPins(a *app, cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout())
	defer cancel()

	list, err := a.client.ListPins(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pins: %w", err)
	}

	collection := pins.NewCollection()
	if err := collection.Load(list); err != nil {
		return err
	}

	results, err := selectPins(collection, listQuery)
	if err != nil {
		return err
	}

	if listQuery.json {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	s, err := a.sessions.Restore()
	if err != nil {
		return err
	}

	printTitle(fmt.Sprintf("%d of %d pins", len(results), collection.Len()))
	showDistance := !listQuery.box() && (listQuery.radius > 0 || listQuery.nearest > 0)
	for i, p := range results {
		fmt.Println(formatPin(i+1, p, s, showDistance, listQuery.center()))
	}
	return nil
}

func formatPin(n int, p models.Pin, s *session.Session, withDistance bool, center models.Location) string {
	owner := p.Username
	if s.Owns(p.Username) {
		owner = colorGreen + owner + " (you)" + colorReset
	}
	line := fmt.Sprintf("%d. %s%s%s %s (%.6f, %.6f) by %s, %s",
		n, colorBold, p.Title, colorReset, stars(p.Rating), p.Lat, p.Long, owner, humanize.Time(p.CreatedAt))
	if withDistance {
		line += fmt.Sprintf(" %s%.2f km%s", colorDim, geo.Distance(center, p.Location()), colorReset)
	}
	return line
}
