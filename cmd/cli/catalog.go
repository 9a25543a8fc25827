package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hpp-sizer/internal/data"
)

func catalogCmd() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the dataset catalog served by the API",
	}
	cmd.PersistentFlags().StringVar(&catalogPath, "catalog", data.GetDefaultCatalogPath(), "Catalog JSON path")

	cmd.AddCommand(catalogListCmd(&catalogPath))
	cmd.AddCommand(catalogAddCmd(&catalogPath))
	cmd.AddCommand(catalogRemoveCmd(&catalogPath))
	return cmd
}

func catalogListCmd(catalogPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := data.LoadCatalog(*catalogPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(catalog.Datasets) == 0 {
				fmt.Fprintln(out, "No datasets found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tLAT\tLON\tTZ\tLOAD")
			for _, d := range catalog.Datasets {
				fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%g\t%s\n", d.ID, d.Name, d.Latitude, d.Longitude, d.TimeZone, d.Files.Load.Path)
			}
			return w.Flush()
		},
	}
}

func catalogAddCmd(catalogPath *string) *cobra.Command {
	var (
		ds    data.Dataset
		files data.SiteFiles
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a dataset after checking that its files load and align",
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := data.LoadSite(cmd.Context(), files)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", ds.ID, err)
			}

			catalog, err := data.LoadCatalog(*catalogPath)
			if err != nil {
				catalog = &data.Catalog{}
				fmt.Fprintf(cmd.ErrOrStderr(), "Starting a new catalog at %s\n", *catalogPath)
			}
			ds.Files = relativeFiles(filepath.Dir(*catalogPath), files)
			replaced := false
			for i := range catalog.Datasets {
				if catalog.Datasets[i].ID == ds.ID {
					catalog.Datasets[i] = ds
					replaced = true
				}
			}
			if !replaced {
				catalog.Datasets = append(catalog.Datasets, ds)
			}
			catalog.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			if err := data.SaveCatalog(catalog, *catalogPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved dataset %s (%d samples from %s) to %s\n",
				ds.ID, site.Load.Len(), site.Load.Start.Format(time.RFC3339), *catalogPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&ds.ID, "id", "", "Dataset ID (required)")
	f.StringVar(&ds.Name, "name", "", "Display name")
	f.StringVar(&ds.Description, "description", "", "Description")
	f.Float64Var(&ds.Latitude, "lat", 0, "Site latitude")
	f.Float64Var(&ds.Longitude, "lon", 0, "Site longitude")
	f.Float64Var(&ds.TimeZone, "tz", 0, "Time zone, hours east of GMT")
	f.StringVar(&files.Load.Path, "load", "", "Load series file (required)")
	f.StringVar(&files.Irradiance.Path, "irradiance", "", "Irradiance series file (required)")
	f.StringVar(&files.Temperature.Path, "temperature", "", "Temperature series file")
	f.StringVar(&files.WindSpeed.Path, "wind-speed", "", "Wind speed series file (required)")
	for _, name := range []string{"id", "load", "irradiance", "wind-speed"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func catalogRemoveCmd(catalogPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a dataset from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := data.LoadCatalog(*catalogPath)
			if err != nil {
				return err
			}
			kept := catalog.Datasets[:0]
			for _, d := range catalog.Datasets {
				if d.ID != args[0] {
					kept = append(kept, d)
				}
			}
			if len(kept) == len(catalog.Datasets) {
				return fmt.Errorf("dataset %q not found", args[0])
			}
			catalog.Datasets = kept
			catalog.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			if err := data.SaveCatalog(catalog, *catalogPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed dataset %s\n", args[0])
			return nil
		},
	}
}

// relativeFiles rewrites paths relative to the catalog directory, which is
// where LoadCatalog resolves them from.
func relativeFiles(dir string, f data.SiteFiles) data.SiteFiles {
	rel := func(ref data.FileRef) data.FileRef {
		if ref.Path == "" {
			return ref
		}
		abs, err := filepath.Abs(ref.Path)
		if err != nil {
			return ref
		}
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return data.FileRef{Path: abs, Column: ref.Column}
		}
		if r, err := filepath.Rel(absDir, abs); err == nil {
			return data.FileRef{Path: r, Column: ref.Column}
		}
		return data.FileRef{Path: abs, Column: ref.Column}
	}
	return data.SiteFiles{
		Load:        rel(f.Load),
		Irradiance:  rel(f.Irradiance),
		Temperature: rel(f.Temperature),
		WindSpeed:   rel(f.WindSpeed),
	}
}
