package main

import (
	"fmt"
	"os"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/pipeline"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/milosgajdos/go-rtls/sim"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// simulateCmd simulates a tag walk and localizes it
func simulateCmd() *cobra.Command {
	var (
		output string
		outDir string
		simCfg = sim.DefaultConfig()
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a tag walk and localize the simulated records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pl, err := cfg.DistanceModel()
			if err != nil {
				return err
			}

			s, err := sim.New(cfg.Beacons, pl, cfg.Layout, simCfg)
			if err != nil {
				return err
			}

			samples, err := s.Run()
			if err != nil {
				return err
			}

			records := sim.Records(samples)

			if output != "" {
				if err := writeFile(output, func(f *os.File) error {
					return record.WriteCSV(f, records)
				}); err != nil {
					return err
				}
				fmt.Printf("Generated %d records in %s\n", len(records), output)
			}

			p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
			if err != nil {
				return err
			}

			res, err := p.Run(cmd.Context(), records)
			if err != nil {
				return err
			}

			truth := make([]rtls.Point, len(samples))
			for i, smp := range samples {
				truth[i] = smp.Truth
			}

			if err := writeResults(outDir, cfg.Beacons, res, truth); err != nil {
				return err
			}

			fmt.Println(res.Report)

			if len(res.Positions) < 2 {
				return nil
			}

			raw := make([]rtls.Point, len(res.Positions))
			smoothed := make([]rtls.Point, len(res.Positions))
			expected := make([]rtls.Point, len(res.Positions))
			for i, pos := range res.Positions {
				raw[i] = pos.Raw
				smoothed[i] = pos.Smoothed
				expected[i] = samples[pos.Observation.Index].Truth
			}

			for _, e := range []struct {
				name string
				pts  []rtls.Point
			}{{"raw", raw}, {"smoothed", smoothed}} {
				rmse, err := sim.RMSE(e.pts, expected)
				if err != nil {
					return err
				}

				cov, err := sim.ErrorCov(e.pts, expected)
				if err != nil {
					return err
				}

				fmt.Printf("%s RMSE: %.3f m\n%s error covariance:\n%v\n", e.name, rmse, e.name, mat.Formatted(cov, mat.Prefix("    "), mat.Squeeze()))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&output, "records", "", "Write the simulated records to this CSV file")
	cmd.Flags().StringVarP(&outDir, "out", "o", "results", "Output directory")
	cmd.Flags().IntVarP(&simCfg.Steps, "steps", "n", simCfg.Steps, "Number of simulated records")
	cmd.Flags().Uint64Var(&simCfg.Seed, "seed", 0, "Random seed (0 seeds from the clock)")
	cmd.Flags().Float64Var(&simCfg.RSSINoise, "rssi-noise", simCfg.RSSINoise, "Signal strength noise variance [dB^2]")
	cmd.Flags().Float64Var(&simCfg.ProcessNoise, "process-noise", simCfg.ProcessNoise, "Tag state noise variance")
	cmd.Flags().StringVar(&simCfg.TagID, "tag", simCfg.TagID, "Simulated tag id")

	return cmd
}
