package orchestrator

import (
	"strings"

	"github.com/byteowlz/kaextract/internal/model"
)

// DemoNotice is shown next to synthesized listings.
const DemoNotice = "Note: you are looking at demo data. Enter a full Kleinanzeigen URL for real data."

var (
	demoPhone = model.Result{
		Title: "iPhone 13 Pro Max - 256GB - Graphit - Wie neu",
		Description: "Verkaufe mein iPhone 13 Pro Max mit 256GB in der Farbe Graphit. " +
			"Das Gerät ist in einem sehr guten Zustand, ohne Kratzer oder Dellen. " +
			"Originalverpackung, Ladekabel und Originalrechnung sind vorhanden. " +
			"Akku-Gesundheit liegt bei 92%. " +
			"Versand möglich oder Abholung in München.",
		Price:    "799 € VB",
		Location: "80331 München",
		Images: []string{
			"https://i.ebayimg.com/00/s/MTYwMFgxMjAw/z/s~gAAOSwH4VkWGxc/$_59.JPG",
			"https://i.ebayimg.com/00/s/MTYwMFgxMjAw/z/XVIAAOSwH4VkWGxc/$_59.JPG",
			"https://i.ebayimg.com/00/s/MTYwMFgxMjAw/z/s~gAAOSwH4VkWGxc/$_59.JPG",
		},
	}

	demoSofa = model.Result{
		Title: "Schönes Sofa - 3-Sitzer - Grau - Sehr guter Zustand",
		Description: "Verkaufe mein 3-Sitzer Sofa in grau. Das Sofa ist ca. 2 Jahre alt und in einem sehr guten Zustand. " +
			"Keine Flecken, keine Risse, keine Haustiere. " +
			"Maße: 220cm x 90cm x 85cm (BxTxH). " +
			"Nur Abholung in Berlin-Mitte.",
		Price:    "250 €",
		Location: "10115 Berlin-Mitte",
		Images: []string{
			"https://i.ebayimg.com/00/s/MTIwMFgxNjAw/z/E~IAAOSwm1Nj~hQP/$_59.JPG",
			"https://i.ebayimg.com/00/s/MTIwMFgxNjAw/z/E~IAAOSwm1Nj~hQP/$_59.JPG",
		},
	}

	demoBike = model.Result{
		Title: "Mountainbike - 29 Zoll - Fully - Shimano XT - Top Zustand",
		Description: "Verkaufe mein Mountainbike der Marke Trek. " +
			"29 Zoll, Fully, Shimano XT Schaltung, hydraulische Scheibenbremsen. " +
			"Das Bike ist in einem sehr guten Zustand, wurde regelmäßig gewartet. " +
			"Neupreis war 2.200€. " +
			"Bei Fragen einfach melden. Probefahrt möglich in Hamburg.",
		Price:    "1.450 € VB",
		Location: "20095 Hamburg",
		Images: []string{
			"https://i.ebayimg.com/00/s/MTYwMFgxMjAw/z/DL8AAOSwLwBkpCpb/$_59.JPG",
			"https://i.ebayimg.com/00/s/MTYwMFgxMjAw/z/DL8AAOSwLwBkpCpb/$_59.JPG",
		},
	}
)

// DemoResult returns the demo listing matching key. Timestamp is left for
// the caller to stamp.
func DemoResult(key string) model.Result {
	lower := strings.ToLower(key)

	var r model.Result
	switch {
	case strings.Contains(lower, "iphone") || strings.Contains(lower, "smartphone"):
		r = demoPhone.Clone()
	case strings.Contains(lower, "sofa") || strings.Contains(lower, "möbel") || strings.Contains(lower, "moebel"):
		r = demoSofa.Clone()
	default:
		r = demoBike.Clone()
	}
	r.IsDemo = true
	return r
}
