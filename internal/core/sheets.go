package core

import (
	"strings"

	"tirecore/pkg/domain"
)

// BuildSheetTemplate drafts a sheet for order prefilled from the front spec of
// its combination. Only enabled fields appear in the template.
func BuildSheetTemplate(order domain.TestOrder, combo domain.SpecCombination, fields []domain.SheetField) domain.SheetTemplate {
	prefill := map[string]string{
		domain.FieldMCode:         "",
		domain.FieldManufacturing: combo.Front.Manufacturer,
		domain.FieldCuring:        combo.Front.Curing,
		domain.FieldCarving:       strings.TrimPrefix(combo.Front.Carving, "Mold "),
		domain.FieldBuffing:       combo.Front.Buffing,
		domain.FieldRemarks:       "",
	}
	tpl := domain.SheetTemplate{
		TestOrderID: order.ID,
		SpecCode:    combo.Label,
		Fields:      make([]domain.SheetField, 0, len(fields)),
		Values:      make(map[string]string, len(fields)),
	}
	for _, field := range fields {
		if !field.Enabled {
			continue
		}
		tpl.Fields = append(tpl.Fields, field)
		tpl.Values[field.Key] = prefill[field.Key]
	}
	return tpl
}
