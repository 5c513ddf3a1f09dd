package booking

import (
	"fmt"
	"strings"
)

// SummaryOptions control how a scratchpad is projected into text.
type SummaryOptions struct {
	// Audit annotates each rendered field with its provenance.
	Audit bool
	// ShowMissing appends a "(missing)" line for null required fields so a
	// partial confirmation can highlight what is still needed.
	ShowMissing bool
	// Required is consulted only when ShowMissing is set.
	Required []FieldRef
}

var sectionTitles = map[string]string{
	SectionCustomer:    "Customer",
	SectionVehicle:     "Vehicle",
	SectionAppointment: "Appointment",
}

// RenderSummary projects a scratchpad into a human-readable confirmation
// message. Null fields are never rendered. The function is pure and safe to
// call repeatedly as the scratchpad mutates.
func RenderSummary(pad *Scratchpad, opts SummaryOptions) string {
	var b strings.Builder
	requiredSet := make(map[FieldRef]bool, len(opts.Required))
	for _, ref := range opts.Required {
		requiredSet[ref] = true
	}

	for _, section := range sectionOrder {
		var lines []string
		for _, field := range sectionFields[section] {
			entry := pad.GetField(section, field)
			ref := FieldRef{Section: section, Field: field}
			switch {
			case entry.HasValue():
				line := fmt.Sprintf("  %s: %s", fieldLabel(field), *entry.Value)
				if opts.Audit {
					line += fmt.Sprintf(" [%s, turn %d, %.2f]", entry.Source, entry.Turn, entry.Confidence)
				}
				lines = append(lines, line)
			case opts.ShowMissing && requiredSet[ref]:
				lines = append(lines, fmt.Sprintf("  %s: (missing)", fieldLabel(field)))
			}
		}
		if len(lines) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionTitles[section])
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

func fieldLabel(field string) string {
	label := strings.ReplaceAll(field, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
