package output

import (
	"io"

	"github.com/mrz1836/linkbridge/internal/chain"
)

// ProviderList is the JSON shape of a provider listing.
type ProviderList struct {
	Providers []chain.ProviderInfo `json:"providers"`
}

// RenderProviders writes discovered providers as a table or as JSON.
// An empty text listing says so instead of printing a bare header.
func RenderProviders(w io.Writer, format Format, providers []chain.ProviderInfo) error {
	if providers == nil {
		providers = []chain.ProviderInfo{}
	}

	f := NewFormatter(format, w)
	if f.IsJSON() {
		return f.Print(ProviderList{Providers: providers})
	}

	if len(providers) == 0 {
		return f.Println("No wallet providers found.")
	}

	table := NewTable("FAMILY", "ID", "NAME")
	for _, p := range providers {
		table.AddRow(p.Type.String(), p.ID, p.Name)
	}
	return table.Render(w)
}
