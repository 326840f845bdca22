package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cepcode/backend/internal/config"
	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/service"
	"github.com/cepcode/backend/internal/viacep"
)

// lookupFactory builds the address lookup on first use so offline commands
// never read upstream configuration.
type lookupFactory func() (service.AddressLookup, error)

func defaultLookup() (service.AddressLookup, error) {
	cfg, err := config.LoadOptional()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return viacep.New(cfg.ViaCEP.BaseURL,
		viacep.WithTimeout(cfg.ViaCEP.Timeout),
		viacep.WithRateLimit(cfg.ViaCEP.RPS, cfg.ViaCEP.Burst),
	), nil
}

type cli struct {
	codec   domain.IdentifierCodec
	lookup  lookupFactory
	jsonOut bool
}

func newRootCmd(lookup lookupFactory) *cobra.Command {
	c := &cli{lookup: lookup}

	root := &cobra.Command{
		Use:          "cepctl",
		Short:        "Inspect CEP regions and region-tagged product codes",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		c.regionCmd(),
		c.statesCmd(),
		c.validateCmd(),
		c.extractCmd(),
		c.encodeCmd(),
		c.generateCmd(),
		c.lookupCmd(),
		c.normalizeCmd(),
	)
	return root
}

func (c *cli) regionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "region <UF>",
		Short: "Show the region a state routes to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uf := strings.ToUpper(strings.TrimSpace(args[0]))
			region := domain.RegionFor(uf)
			known := domain.IsValidState(uf)
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"state":       uf,
					"state_name":  domain.StateName(uf),
					"known":       known,
					"region_id":   region,
					"region_name": domain.RegionName(region),
				})
			}
			if !known {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: unknown state, default region %d %s\n", uf, region, domain.RegionName(region))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: region %d %s\n", uf, domain.StateName(uf), region, domain.RegionName(region))
			return nil
		},
	}
}

func (c *cli) statesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "states <region>",
		Short: "List the states of a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRegion(args[0])
			if err != nil {
				return err
			}
			region, err := domain.GetRegion(id)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), region)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s: %s\n", region.ID, region.Name, strings.Join(region.States, " "))
			return nil
		},
	}
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <code>",
		Short: "Check the structure of a full product code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := service.ValidateCode(c.codec, args[0])
			if c.jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else if res.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, region %d %s\n", res.Code, res.RegionID, res.RegionName)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid (%s)\n", res.Code, res.Reason)
			}
			if !res.Valid {
				return fmt.Errorf("%w: %s", domain.ErrInvalidFormat, res.Reason)
			}
			return nil
		},
	}
}

func (c *cli) extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <code>",
		Short: "Print the region digit of a code, falling back to region 1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			region := c.codec.ExtractRegion(domain.CanonicalCode(args[0]))
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"region_id": region, "region_name": domain.RegionName(region)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), region)
			return nil
		},
	}
}

func (c *cli) encodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <region> <base>",
		Short: "Prefix a 12-character base code with a region digit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("region must be an integer: %w", err)
			}
			base := domain.CanonicalCode(args[1])
			if !domain.IsValidBase(base) {
				return fmt.Errorf("%w: base must be %d characters of A-Z0-9", domain.ErrInvalidFormat, domain.BaseCodeLength)
			}
			return c.printCode(cmd.OutOrStdout(), c.codec.Encode(region, base))
		},
	}
}

func (c *cli) generateCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "generate [region]",
		Short: "Generate fresh full codes (not checked against the database)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			region := domain.DefaultRegion
			if len(args) == 1 {
				id, err := parseRegion(args[0])
				if err != nil {
					return err
				}
				region = id
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			for range count {
				base, err := c.codec.GenerateBase()
				if err != nil {
					return err
				}
				if err := c.printCode(cmd.OutOrStdout(), c.codec.Encode(region, base)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of codes to generate")
	return cmd
}

func (c *cli) lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <cep>",
		Short: "Resolve a CEP against the live upstream service, bypassing the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := domain.NormalizePostalCode(args[0])
			if err != nil {
				return err
			}
			lookup, err := c.lookup()
			if err != nil {
				return err
			}
			addr, err := lookup.LookupPostalCode(cmd.Context(), code)
			if err != nil {
				return err
			}
			rec := domain.NewPostalRecord(args[0], code, addr)
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s, %s/%s: region %d %s\n",
				rec.Formatted, rec.Street, rec.City, rec.State, rec.RegionID, rec.RegionName)
			return nil
		},
	}
}

func (c *cli) normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <cep>",
		Short: "Strip formatting from a CEP and check it offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			check := domain.CheckPostalCode(args[0])
			if c.jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), check); err != nil {
					return err
				}
			} else if check.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", check.Normalized, check.Formatted)
			}
			if !check.Valid {
				return fmt.Errorf("%w: %s", domain.ErrInvalidFormat, check.Reason)
			}
			return nil
		},
	}
}

func (c *cli) printCode(w io.Writer, full string) error {
	if c.jsonOut {
		region := c.codec.ExtractRegion(full)
		return writeJSON(w, map[string]any{"code": full, "region_id": region, "region_name": domain.RegionName(region)})
	}
	_, err := fmt.Fprintln(w, full)
	return err
}

func parseRegion(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !domain.IsValidRegion(id) {
		return 0, fmt.Errorf("%w: region must be 1, 2 or 3, got %q", domain.ErrValidation, s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
