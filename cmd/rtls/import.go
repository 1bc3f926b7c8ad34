package main

import (
	"fmt"

	"github.com/milosgajdos/go-rtls/store"
	"github.com/spf13/cobra"
)

// importCmd imports raw records from CSV files into the database
func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import raw records from CSV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(dbPath, logger)
			if err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer s.Close()

			total := 0
			for _, file := range args {
				records, err := readRecords(file)
				if err != nil {
					return err
				}

				if err := s.InsertRecords(cmd.Context(), records); err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}

				fmt.Printf("Imported %d records from %s\n", len(records), file)
				total += len(records)
			}

			fmt.Printf("Imported %d records\n", total)

			return nil
		},
	}

	return cmd
}

// runsCmd lists stored runs
func runsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(dbPath, logger)
			if err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer s.Close()

			runs, err := s.Runs(cmd.Context())
			if err != nil {
				return err
			}

			for _, r := range runs {
				fmt.Printf("%s  %s  total=%d logical=%d dropped=%d degenerate=%d\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Total, r.Logical, r.Dropped, r.Degenerate)
			}

			return nil
		},
	}
}
