package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"tirecore/internal/core"
	"tirecore/pkg/domain"
)

func newCatalogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List front and rear specs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				c := rt.Service.Catalog()
				return out.Emit(c, nil, func(w io.Writer) {
					fmt.Fprintln(w, "SIDE\tCODE\tLABEL\tMANUFACTURER\tCURING\tCARVING\tBUFFING")
					for _, s := range c.Front {
						fmt.Fprintf(w, "front\t%s\t%s\t%s\t%s\t%s\t%s\n", s.Code, s.Label, s.Manufacturer, s.Curing, s.Carving, s.Buffing)
					}
					for _, s := range c.Rear {
						fmt.Fprintf(w, "rear\t%s\t%s\t%s\t%s\t%s\t%s\n", s.Code, s.Label, s.Manufacturer, s.Curing, s.Carving, s.Buffing)
					}
				})
			})
		},
	}
}

func renderCombinations(w io.Writer, combos []domain.SpecCombination) {
	fmt.Fprintln(w, "ID\tLABEL\tFRONT\tREAR\tQTY\tPURPOSE")
	for _, c := range combos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", c.ID, c.Label, c.Front.Code, c.Rear.Code, c.Quantity, c.Purpose)
	}
}

func newCombinationsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "combinations",
		Aliases: []string{"combos"},
		Short:   "List spec combinations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				combos, err := rt.Service.ListCombinations(cmd.Context())
				if err != nil {
					return commandError("list combinations", err)
				}
				return out.Emit(combos, nil, func(w io.Writer) { renderCombinations(w, combos) })
			})
		},
	}

	var in core.CombinationInput
	var notes string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a front/rear spec combination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				combo, res, err := rt.Service.AddCombination(cmd.Context(), in)
				if err != nil {
					return commandError("add combination", err)
				}
				return out.Emit(combo, res.Violations, func(w io.Writer) {
					renderCombinations(w, []domain.SpecCombination{combo})
				})
			})
		},
	}
	add.Flags().StringVar(&in.FrontCode, "front", "", "front spec code (e.g. FR-A)")
	add.Flags().StringVar(&in.RearCode, "rear", "", "rear spec code (e.g. RR-a)")
	add.Flags().IntVar(&in.Quantity, "quantity", 0, "tire quantity")
	add.Flags().StringVar(&in.Purpose, "purpose", "", "test purpose")
	add.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = add.MarkFlagRequired("front")
	_ = add.MarkFlagRequired("rear")
	cmd.AddCommand(add)
	return cmd
}

func renderOrders(w io.Writer, orders []domain.TestOrder) {
	fmt.Fprintln(w, "#\tID\tCOMBINATION\tSTATUS\tVEHICLE\tSCHEDULE\tQTY\tOBJECTIVE")
	for i, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n", i+1, o.ID, o.CombinationID, o.Status, o.Vehicle, o.Schedule, o.Quantity, o.Objective)
	}
}

func newOrdersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List test orders in sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				orders, err := rt.Service.ListOrders(cmd.Context())
				if err != nil {
					return commandError("list orders", err)
				}
				return out.Emit(orders, nil, func(w io.Writer) { renderOrders(w, orders) })
			})
		},
	}

	var in core.OrderInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Append a planned test order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				order, res, err := rt.Service.AddOrder(cmd.Context(), in)
				if err != nil {
					return commandError("add order", err)
				}
				return out.Emit(order, res.Violations, func(w io.Writer) { renderOrders(w, []domain.TestOrder{order}) })
			})
		},
	}
	add.Flags().StringVar(&in.CombinationID, "combination", "", "combination id (e.g. T1)")
	add.Flags().StringVar(&in.Objective, "objective", "", "test objective (defaults to the combination purpose)")
	add.Flags().StringVar(&in.Vehicle, "vehicle", "", "test vehicle")
	add.Flags().StringVar(&in.Schedule, "schedule", "", "schedule date")
	add.Flags().IntVar(&in.Quantity, "quantity", 0, "tire quantity")
	_ = add.MarkFlagRequired("combination")

	move := &cobra.Command{
		Use:       "move <order-id> <earlier|later>",
		Short:     "Swap an order with its neighbour",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.DirectionEarlier), string(domain.DirectionLater)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				moved, _, err := rt.Service.Reposition(cmd.Context(), args[0], domain.Direction(args[1]))
				if err != nil {
					return commandError("move order", err)
				}
				orders, err := rt.Service.ListOrders(cmd.Context())
				if err != nil {
					return commandError("list orders", err)
				}
				return out.Emit(map[string]any{"moved": moved, "orders": orders}, nil, func(w io.Writer) {
					if !moved {
						fmt.Fprintf(w, "%s already at boundary\n", args[0])
					}
					renderOrders(w, orders)
				})
			})
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Toggle cancellation of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				order, res, err := rt.Service.ToggleCancellation(cmd.Context(), args[0])
				if err != nil {
					return commandError("toggle cancellation", err)
				}
				return out.Emit(order, res.Violations, func(w io.Writer) { renderOrders(w, []domain.TestOrder{order}) })
			})
		},
	}

	advance := &cobra.Command{
		Use:   "advance <order-id> <in-progress|completed>",
		Short: "Move an order forward in its lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				order, res, err := rt.Service.AdvanceOrder(cmd.Context(), args[0], domain.OrderStatus(args[1]))
				if err != nil {
					return commandError("advance order", err)
				}
				return out.Emit(order, res.Violations, func(w io.Writer) { renderOrders(w, []domain.TestOrder{order}) })
			})
		},
	}

	cmd.AddCommand(add, move, cancel, advance)
	return cmd
}

func newSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo round into an empty ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				seeded, err := rt.Service.SeedDemo(cmd.Context())
				if err != nil {
					return commandError("seed", err)
				}
				return out.Emit(map[string]bool{"seeded": seeded}, nil, func(w io.Writer) {
					fmt.Fprintln(w, "seeded\t"+strconv.FormatBool(seeded))
				})
			})
		},
	}
}
