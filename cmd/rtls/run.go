package main

import (
	"context"
	"fmt"
	"os"

	"github.com/milosgajdos/go-rtls/pipeline"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/milosgajdos/go-rtls/store"
	"github.com/spf13/cobra"
)

// runCmd localizes records from a CSV file or the database
func runCmd() *cobra.Command {
	var (
		input  string
		outDir string
		save   bool
		from   int64
		to     int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Localize tags from raw records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var records []record.Record
			if input != "" {
				records, err = readRecords(input)
			} else {
				var r store.Range
				if cmd.Flags().Changed("from") {
					r.From = &from
				}
				if cmd.Flags().Changed("to") {
					r.To = &to
				}
				records, err = loadRecords(cmd.Context(), r)
			}
			if err != nil {
				return err
			}

			p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
			if err != nil {
				return err
			}

			res, err := p.Run(cmd.Context(), records)
			if err != nil {
				return err
			}

			if err := writeResults(outDir, cfg.Beacons, res, nil); err != nil {
				return err
			}

			if save {
				s, err := store.Open(dbPath, logger)
				if err != nil {
					return fmt.Errorf("database error: %w", err)
				}
				defer s.Close()

				id, err := s.SaveRun(cmd.Context(), res)
				if err != nil {
					return err
				}
				fmt.Printf("Saved run %s\n", id)
			}

			fmt.Println(res.Report)

			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file with raw records (records are read from the database if empty)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "results", "Output directory")
	cmd.Flags().BoolVar(&save, "save", false, "Store the run in the database")
	cmd.Flags().Int64Var(&from, "from", 0, "Earliest record timestamp read from the database (no limit if unset)")
	cmd.Flags().Int64Var(&to, "to", 0, "Latest record timestamp read from the database (no limit if unset)")

	return cmd
}

func readRecords(path string) ([]record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := record.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return records, nil
}

func loadRecords(ctx context.Context, r store.Range) ([]record.Record, error) {
	s, err := store.Open(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer s.Close()

	return s.Records(ctx, r)
}
