package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meddx/meddx/internal/config"
	"github.com/meddx/meddx/internal/domain/diagnosis"
)

func diagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run one diagnosis offline and print the result as JSON",
		Long: `Reads a JSON object of raw inputs, either bare or wrapped as {"inputs": {...}},
from --input (a file path, or "-" for stdin) and runs it through the same
pipeline the API uses. No credential store is opened.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			disease, _ := cmd.Flags().GetString("disease")
			input, _ := cmd.Flags().GetString("input")
			if disease == "" {
				return errors.New("--disease is required")
			}

			inputs, err := readInputs(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.IsDev())
			registry, svc, err := newDiagnosis(cfg, logger)
			if err != nil {
				return err
			}
			defer registry.Close()

			res, err := svc.Diagnose(cmd.Context(), disease, inputs)
			if err != nil {
				var verr *diagnosis.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("missing or invalid fields: %s", strings.Join(verr.Labels(), ", "))
				}
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().String("disease", "", "Disease key, as listed by GET /api/v1/diseases")
	cmd.Flags().String("input", "-", `JSON input file, or "-" for stdin`)
	return cmd
}

func readInputs(stdin io.Reader, path string) (diagnosis.RawInputs, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	if len(doc) == 1 {
		if wrapped, ok := doc["inputs"].(map[string]interface{}); ok {
			return diagnosis.RawInputs(wrapped), nil
		}
	}
	return diagnosis.RawInputs(doc), nil
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the configured model manifest",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Load every declared model and report its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			registry, _, err := newDiagnosis(cfg, newLogger(cmd.ErrOrStderr(), cfg.IsDev()))
			if err != nil {
				return err
			}
			defer registry.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-14s %-8s %-8s %s\n", "DISEASE", "KIND", "STATUS", "ERROR")
			for _, s := range registry.Warm(cmd.Context()) {
				status := "failed"
				if s.Loaded {
					status = "loaded"
				}
				fmt.Fprintf(out, "%-14s %-8s %-8s %s\n", s.Disease, s.Kind, status, s.Error)
			}
			return nil
		},
	})

	return cmd
}
