package commands

import (
	"fmt"
	"strconv"

	"github.com/aluiziolira/astrokml/geometry"
	"github.com/aluiziolira/astrokml/scraper"
	"github.com/spf13/cobra"
)

var shapeCmd = &cobra.Command{
	Use:   "shape <output> <shapefile>",
	Short: "Collect photos inside the polygon of a shapefile.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args[0])
		if err != nil {
			return err
		}
		region, err := geometry.LoadShapefile(args[1])
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return run(cmd.Context(), cfg, scraper.BoundingBoxSearch{Box: region.Bounds()}, region)
	},
}

var bboxCmd = &cobra.Command{
	Use:   "bbox <output> <minLon> <minLat> <maxLon> <maxLat>",
	Short: "Collect photos inside a longitude/latitude box.",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		box, err := parseBBox(args[1:])
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd, args[0])
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return run(cmd.Context(), cfg, scraper.BoundingBoxSearch{Box: box}, box)
	},
}

var regionCmd = &cobra.Command{
	Use:   "region <output> <region>...",
	Short: "Collect photos of the catalog's named regions.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		criteria, err := scraper.NewRegionSearch(args[1:]...)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd, args[0])
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return run(cmd.Context(), cfg, criteria, nil)
	},
}

func init() {
	// Flags stop at the first positional argument so negative
	// coordinates are not read as shorthand flags.
	bboxCmd.Flags().SetInterspersed(false)
}

var bboxArgNames = []string{"minLon", "minLat", "maxLon", "maxLat"}

func parseBBox(args []string) (geometry.BBox, error) {
	if len(args) != len(bboxArgNames) {
		return geometry.BBox{}, fmt.Errorf("expected %d coordinates, got %d", len(bboxArgNames), len(args))
	}
	var v [4]float64
	for i, raw := range args {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return geometry.BBox{}, fmt.Errorf("%s: %q is not a number", bboxArgNames[i], raw)
		}
		v[i] = f
	}
	return geometry.NewBBox(v[0], v[1], v[2], v[3])
}
