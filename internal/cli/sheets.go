package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tirecore/pkg/domain"
)

func renderSheets(w io.Writer, sheets []domain.EvaluationSheet) {
	fmt.Fprintln(w, "ID\tORDER\tSPEC\tM-CODE\tMANUFACTURING\tCURING\tCARVING\tBUFFING")
	for _, s := range sheets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.TestOrderID, s.SpecCode, s.MCode, s.Manufacturing, s.Curing, s.Carving, s.Buffing)
	}
}

func newSheetsCommand(opts *RootOptions) *cobra.Command {
	var orderID string
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "List evaluation sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				sheets, err := rt.Service.ListSheets(cmd.Context(), orderID)
				if err != nil {
					return commandError("list sheets", err)
				}
				return out.Emit(sheets, nil, func(w io.Writer) { renderSheets(w, sheets) })
			})
		},
	}
	cmd.Flags().StringVar(&orderID, "order", "", "only sheets for this order id")

	var sheet domain.EvaluationSheet
	record := &cobra.Command{
		Use:   "record",
		Short: "Record an evaluation sheet for an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				created, res, err := rt.Service.RecordSheet(cmd.Context(), sheet)
				if err != nil {
					return commandError("record sheet", err)
				}
				return out.Emit(created, res.Violations, func(w io.Writer) { renderSheets(w, []domain.EvaluationSheet{created}) })
			})
		},
	}
	f := record.Flags()
	f.StringVar(&sheet.TestOrderID, "order", "", "order id")
	f.StringVar(&sheet.SpecCode, "spec", "", "spec code (defaults to the combination label)")
	f.StringVar(&sheet.MCode, "m-code", "", "manufacturing lot code")
	f.StringVar(&sheet.Manufacturing, "manufacturing", "", "plant and production week")
	f.StringVar(&sheet.Curing, "curing", "", "curing temperature and time")
	f.StringVar(&sheet.Carving, "carving", "", "mold identification code")
	f.StringVar(&sheet.Buffing, "buffing", "", "buffing applied")
	f.StringVar(&sheet.Remarks, "remarks", "", "on-site notes")
	_ = record.MarkFlagRequired("order")

	template := &cobra.Command{
		Use:   "template <order-id>",
		Short: "Draft a sheet prefilled from the order's front spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				tpl, err := rt.Service.SheetTemplate(cmd.Context(), args[0])
				if err != nil {
					return commandError("sheet template", err)
				}
				return out.Emit(tpl, nil, func(w io.Writer) {
					fmt.Fprintf(w, "order\t%s\nspec\t%s\n", tpl.TestOrderID, tpl.SpecCode)
					for _, field := range tpl.Fields {
						fmt.Fprintf(w, "%s\t%s\n", field.Label, tpl.Values[field.Key])
					}
				})
			})
		},
	}

	cmd.AddCommand(record, template)
	return cmd
}

func renderFields(w io.Writer, fields []domain.SheetField) {
	fmt.Fprintln(w, "KEY\tLABEL\tENABLED\tDESCRIPTION")
	for _, f := range fields {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", f.Key, f.Label, f.Enabled, f.Description)
	}
}

func newFieldsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Show the sheet field configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				fields, err := rt.Service.SheetFieldConfig(cmd.Context())
				if err != nil {
					return commandError("list fields", err)
				}
				return out.Emit(fields, nil, func(w io.Writer) { renderFields(w, fields) })
			})
		},
	}
	toggle := &cobra.Command{
		Use:   "toggle <key>",
		Short: "Enable or disable a sheet field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				field, res, err := rt.Service.ToggleField(cmd.Context(), args[0])
				if err != nil {
					return commandError("toggle field", err)
				}
				return out.Emit(field, res.Violations, func(w io.Writer) { renderFields(w, []domain.SheetField{field}) })
			})
		},
	}
	cmd.AddCommand(toggle)
	return cmd
}
